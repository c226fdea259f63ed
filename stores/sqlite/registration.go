package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prohub/collabauth"
)

// RegistrationStore keeps locally registered accounts in SQLite. The full
// record is stored as a JSON column; id, email and the password hash are
// broken out for lookups and uniqueness.
type RegistrationStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRegistrationStore wraps an already-opened database (see Open).
func NewRegistrationStore(db *sql.DB, logger *slog.Logger) *RegistrationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationStore{db: db, logger: logger}
}

// Register validates, hashes the password and inserts the record inside a
// transaction. Nothing is written when validation fails or the email
// already has an account.
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

	record, err := json.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM registered_users WHERE email = ?`, stored.Email).Scan(&existing)
	switch {
	case err == nil:
		return nil, collabauth.NewDuplicateEmailError(stored.Email)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("checking for duplicate email: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registered_users (id, email, password_hash, record, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Email, hash, string(record), now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing registration: %w", err)
	}

	s.logger.Info("user registered", "id", stored.ID)
	return stored.Sanitized(), nil
}

// FindByEmail looks up a registered account case-insensitively (the email
// column collates NOCASE), returning (nil, nil) when none matches. The
// record's password field carries the stored hash.
func (s *RegistrationStore) FindByEmail(ctx context.Context, email string) (*collabauth.UserRecord, error) {
	var (
		hash   string
		record string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash, record FROM registered_users WHERE email = ?`, email).
		Scan(&hash, &record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}

	var user collabauth.UserRecord
	if err := json.Unmarshal([]byte(record), &user); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	user.Password = hash
	return &user, nil
}

// Update applies the patch to the record with the given id. A patched
// password is re-hashed; a patched email must not collide with another
// account.
func (s *RegistrationStore) Update(ctx context.Context, id string, patch *collabauth.UserPatch) (*collabauth.UserRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		hash   string
		record string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT password_hash, record FROM registered_users WHERE id = ?`, id).
		Scan(&hash, &record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collabauth.NewNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}

	var user collabauth.UserRecord
	if err := json.Unmarshal([]byte(record), &user); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}

	if patch.Email != nil {
		var other string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM registered_users WHERE email = ? AND id != ?`, *patch.Email, id).
			Scan(&other)
		switch {
		case err == nil:
			return nil, collabauth.NewDuplicateEmailError(*patch.Email)
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("checking for duplicate email: %w", err)
		}
	}

	patch.Apply(&user)
	if patch.Password != nil {
		hash, err = collabauth.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
	}
	user.TouchLastActive(time.Now())
	user.Password = ""

	updated, err := json.Marshal(&user)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx,
		`UPDATE registered_users SET email = ?, password_hash = ?, record = ?, updated_at = ? WHERE id = ?`,
		user.Email, hash, string(updated), now, id)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update: %w", err)
	}
	return user.Sanitized(), nil
}

// Remove deletes the record with the given id, reporting whether one was
// removed.
func (s *RegistrationStore) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registered_users WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// All returns every registered record, sanitized, ordered by creation time.
func (s *RegistrationStore) All(ctx context.Context) ([]*collabauth.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM registered_users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var out []*collabauth.UserRecord
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		var user collabauth.UserRecord
		if err := json.Unmarshal([]byte(record), &user); err != nil {
			return nil, fmt.Errorf("decoding record: %w", err)
		}
		out = append(out, user.Sanitized())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return out, nil
}
