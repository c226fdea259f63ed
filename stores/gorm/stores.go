//go:build !wasm
// +build !wasm

// Package gorm implements the registration and credential stores on any
// database GORM can dial, for multi-user server deployments.
package gorm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/prohub/collabauth"
)

// AutoMigrate runs database migrations for all collabauth tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&RegisteredUserModel{},
		&CredentialModel{},
	)
}

// =============================================================================
// RegistrationStore
// =============================================================================

// RegistrationStore implements collabauth.RegistrationStore using GORM.
type RegistrationStore struct {
	db *gorm.DB
}

func NewRegistrationStore(db *gorm.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

// Register validates, hashes the password and inserts the record. The email
// is lowercased on write so the unique index enforces case-insensitive
// uniqueness.
func (s *RegistrationStore) Register(ctx context.Context, user *collabauth.UserRecord) (*collabauth.UserRecord, error) {
	if violations := collabauth.ValidateRegistration(user); len(violations) > 0 {
		return nil, &collabauth.ValidationError{Violations: violations}
	}

	stored := *user
	if stored.ID == "" {
		stored.ID = collabauth.NewUserID()
	}
	hash, err := collabauth.HashPassword(stored.Password)
	if err != nil {
		return nil, err
	}
	stored.Password = ""

	now := time.Now().UTC().Format(time.RFC3339)
	if stored.Metadata.CreatedAt == "" {
		stored.Metadata.CreatedAt = now
	}
	stored.Metadata.LastActive = now
	if stored.Metadata.RegistrationMethod == "" {
		stored.Metadata.RegistrationMethod = collabauth.RegistrationPassword
	}

	model := &RegisteredUserModel{
		ID:           stored.ID,
		Email:        strings.ToLower(stored.Email),
		PasswordHash: hash,
		Record:       UserJSON(stored),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, collabauth.NewDuplicateEmailError(stored.Email)
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return stored.Sanitized(), nil
}

// FindByEmail looks up a registered account, returning (nil, nil) when none
// matches. The record's password field carries the stored hash.
func (s *RegistrationStore) FindByEmail(ctx context.Context, email string) (*collabauth.UserRecord, error) {
	var model RegisteredUserModel
	err := s.db.WithContext(ctx).First(&model, "email = ?", strings.ToLower(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return model.ToUserRecord(), nil
}

// Update applies the patch to the record with the given id.
func (s *RegistrationStore) Update(ctx context.Context, id string, patch *collabauth.UserPatch) (*collabauth.UserRecord, error) {
	var out *collabauth.UserRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model RegisteredUserModel
		if err := tx.First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return collabauth.NewNotFoundError(id)
			}
			return fmt.Errorf("querying user by id: %w", err)
		}

		if patch.Email != nil {
			var count int64
			if err := tx.Model(&RegisteredUserModel{}).
				Where("email = ? AND id != ?", strings.ToLower(*patch.Email), id).
				Count(&count).Error; err != nil {
				return fmt.Errorf("checking for duplicate email: %w", err)
			}
			if count > 0 {
				return collabauth.NewDuplicateEmailError(*patch.Email)
			}
		}

		user := collabauth.UserRecord(model.Record)
		patch.Apply(&user)
		if patch.Password != nil {
			hash, err := collabauth.HashPassword(*patch.Password)
			if err != nil {
				return err
			}
			model.PasswordHash = hash
		}
		user.TouchLastActive(time.Now())
		user.Password = ""

		model.Email = strings.ToLower(user.Email)
		model.Record = UserJSON(user)
		if err := tx.Save(&model).Error; err != nil {
			return fmt.Errorf("updating user: %w", err)
		}
		out = user.Sanitized()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes the record with the given id, reporting whether one was
// removed.
func (s *RegistrationStore) Remove(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&RegisteredUserModel{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("deleting user: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// All returns every registered record, sanitized, ordered by creation time.
func (s *RegistrationStore) All(ctx context.Context) ([]*collabauth.UserRecord, error) {
	var models []RegisteredUserModel
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	out := make([]*collabauth.UserRecord, 0, len(models))
	for i := range models {
		user := collabauth.UserRecord(models[i].Record)
		out = append(out, user.Sanitized())
	}
	return out, nil
}

// =============================================================================
// CredentialStore
// =============================================================================

const credentialKey = "current"

// CredentialStore implements collabauth.CredentialStore using GORM. The
// token and user snapshot live in one row, saved in one statement.
type CredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Save(ctx context.Context, token string, user *collabauth.UserRecord) error {
	model := &CredentialModel{
		Key:     credentialKey,
		Token:   token,
		User:    UserJSON(*user),
		SavedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("saving credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) Load(ctx context.Context) (*collabauth.PersistedCredential, error) {
	var model CredentialModel
	err := s.db.WithContext(ctx).First(&model, "key = ?", credentialKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}
	user := collabauth.UserRecord(model.User)
	return &collabauth.PersistedCredential{
		Token:   model.Token,
		User:    &user,
		SavedAt: model.SavedAt,
	}, nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Delete(&CredentialModel{}, "key = ?", credentialKey).Error; err != nil {
		return fmt.Errorf("clearing credential: %w", err)
	}
	return nil
}
