package collabauth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PersistedCredential is the durable, device-local session snapshot: an
// opaque session token plus the user record it was issued for. Token
// presence alone is what makes a stored session count as authenticated.
type PersistedCredential struct {
	Token   string      `json:"token"`
	User    *UserRecord `json:"user"`
	SavedAt time.Time   `json:"savedAt"`
}

// HashPassword hashes a plaintext password for local storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a stored bcrypt hash against a candidate
// password. Returns ErrInvalidCredentials (wrapped) on mismatch.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return invalidCredentials()
	}
	return nil
}
