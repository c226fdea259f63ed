//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/prohub/collabauth"
)

// UserJSON stores a full UserRecord as a JSON column.
type UserJSON collabauth.UserRecord

func (u UserJSON) Value() (driver.Value, error) {
	return json.Marshal(collabauth.UserRecord(u))
}

func (u *UserJSON) Scan(value any) error {
	if value == nil {
		*u = UserJSON{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, (*collabauth.UserRecord)(u))
}

// RegisteredUserModel is the GORM model for locally registered accounts.
// Email and the password hash are broken out of the record for lookups;
// the record column keeps the full document with the password cleared.
type RegisteredUserModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Email        string    `gorm:"size:320;uniqueIndex"`
	PasswordHash string    `gorm:"size:128"`
	Record       UserJSON  `gorm:"type:jsonb"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (RegisteredUserModel) TableName() string {
	return "registered_users"
}

func (m *RegisteredUserModel) ToUserRecord() *collabauth.UserRecord {
	user := collabauth.UserRecord(m.Record)
	user.Password = m.PasswordHash
	return &user
}

// CredentialModel is the GORM model for the persisted session. There is at
// most one row; the fixed key enforces it.
type CredentialModel struct {
	Key       string    `gorm:"primaryKey;size:16"`
	Token     string    `gorm:"size:128"`
	User      UserJSON  `gorm:"type:jsonb"`
	SavedAt   time.Time
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (CredentialModel) TableName() string {
	return "credentials"
}
