package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prohub/collabauth"
)

const (
	registryFile = "registered_users.json"
	usersDir     = "users"
)

// registryMetadata mirrors the directory document's bookkeeping block so
// the local registry stays diffable against it.
type registryMetadata struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	TotalUsers  int    `json:"totalUsers"`
}

type registry struct {
	Users    []*collabauth.UserRecord `json:"users"`
	Metadata registryMetadata         `json:"metadata"`
}

// RegistrationStore keeps locally registered accounts in a registry file
// plus one JSON file per user under users/. The registry is the source of
// truth; per-user files exist for inspection and export.
type RegistrationStore struct {
	root   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRegistrationStore creates the backing directories if needed.
func NewRegistrationStore(root string, logger *slog.Logger) (*RegistrationStore, error) {
	if err := os.MkdirAll(filepath.Join(root, usersDir), 0o700); err != nil {
		return nil, fmt.Errorf("creating registration dirs: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationStore{root: root, logger: logger}, nil
}

func (s *RegistrationStore) registryPath() string {
	return filepath.Join(s.root, registryFile)
}

func (s *RegistrationStore) userPath(id string) string {
	return filepath.Join(s.root, usersDir, id+".json")
}

// load reads the registry, treating an absent file as empty. Callers hold
// the mutex.
func (s *RegistrationStore) load() (*registry, error) {
	data, err := os.ReadFile(s.registryPath())
	if os.IsNotExist(err) {
		return &registry{Metadata: registryMetadata{Version: "1.0.0"}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	var reg registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decoding registry: %w", err)
	}
	return &reg, nil
}

// save writes the registry and the changed user files. Callers hold the
// mutex.
func (s *RegistrationStore) save(reg *registry, changed ...*collabauth.UserRecord) error {
	reg.Metadata.TotalUsers = len(reg.Users)
	reg.Metadata.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	if reg.Metadata.Version == "" {
		reg.Metadata.Version = "1.0.0"
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	if err := writeAtomicFile(s.registryPath(), data); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}

	for _, u := range changed {
		udata, err := json.MarshalIndent(u, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding user %s: %w", u.ID, err)
		}
		if err := writeAtomicFile(s.userPath(u.ID), udata); err != nil {
			return fmt.Errorf("writing user %s: %w", u.ID, err)
		}
	}
	return nil
}

// Register validates, hashes the password and appends the record. Nothing
// is written when validation fails or the email already has an account.
func (s *RegistrationStore) Register(_ context.Context, user *collabauth.UserRecord) (*collabauth.UserRecord, error) {
	if violations := collabauth.ValidateRegistration(user); len(violations) > 0 {
		return nil, &collabauth.ValidationError{Violations: violations}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, existing := range reg.Users {
		if existing.EmailMatches(user.Email) {
			return nil, collabauth.NewDuplicateEmailError(user.Email)
		}
	}

	stored := *user
	if stored.ID == "" {
		stored.ID = collabauth.NewUserID()
	}
	hash, err := collabauth.HashPassword(stored.Password)
	if err != nil {
		return nil, err
	}
	stored.Password = hash

	now := time.Now().UTC().Format(time.RFC3339)
	if stored.Metadata.CreatedAt == "" {
		stored.Metadata.CreatedAt = now
	}
	stored.Metadata.LastActive = now
	if stored.Metadata.RegistrationMethod == "" {
		stored.Metadata.RegistrationMethod = collabauth.RegistrationPassword
	}

	reg.Users = append(reg.Users, &stored)
	if err := s.save(reg, &stored); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "id", stored.ID, "email", strings.ToLower(stored.Email))
	return stored.Sanitized(), nil
}

// FindByEmail looks up a registered account case-insensitively, returning
// (nil, nil) when none matches. The record keeps its password hash.
func (s *RegistrationStore) FindByEmail(_ context.Context, email string) (*collabauth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, u := range reg.Users {
		if u.EmailMatches(email) {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

// Update applies the patch to the record with the given id. A patched
// password is re-hashed; a patched email must not collide with another
// account.
func (s *RegistrationStore) Update(_ context.Context, id string, patch *collabauth.UserPatch) (*collabauth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return nil, err
	}

	var target *collabauth.UserRecord
	for _, u := range reg.Users {
		if u.ID == id {
			target = u
			break
		}
	}
	if target == nil {
		return nil, collabauth.NewNotFoundError(id)
	}

	if patch.Email != nil {
		for _, other := range reg.Users {
			if other.ID != id && other.EmailMatches(*patch.Email) {
				return nil, collabauth.NewDuplicateEmailError(*patch.Email)
			}
		}
	}

	patch.Apply(target)
	if patch.Password != nil {
		hash, err := collabauth.HashPassword(*patch.Password)
		if err != nil {
			return nil, err
		}
		target.Password = hash
	}
	target.TouchLastActive(time.Now())

	if err := s.save(reg, target); err != nil {
		return nil, err
	}
	return target.Sanitized(), nil
}

// Remove deletes the record with the given id, reporting whether one was
// removed.
func (s *RegistrationStore) Remove(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return false, err
	}

	kept := reg.Users[:0]
	removed := false
	for _, u := range reg.Users {
		if u.ID == id {
			removed = true
			continue
		}
		kept = append(kept, u)
	}
	if !removed {
		return false, nil
	}
	reg.Users = kept

	if err := s.save(reg); err != nil {
		return false, err
	}
	if err := removeIfExists(s.userPath(id)); err != nil {
		return false, fmt.Errorf("removing user file: %w", err)
	}
	return true, nil
}

// All returns every registered record, sanitized.
func (s *RegistrationStore) All(_ context.Context) ([]*collabauth.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*collabauth.UserRecord, 0, len(reg.Users))
	for _, u := range reg.Users {
		out = append(out, u.Sanitized())
	}
	return out, nil
}
