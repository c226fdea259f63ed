package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	xoauth2 "golang.org/x/oauth2"

	"github.com/prohub/collabauth"
)

const (
	credentialFile = "credential.json"
	tokensFile     = "oauth_tokens.json"
)

// CredentialStore keeps the current session in a single JSON document so
// the token and user snapshot are always written together. It also persists
// OAuth2 provider tokens, satisfying the oauth2 package's TokenStore.
type CredentialStore struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewCredentialStore creates the backing directory if needed.
func NewCredentialStore(dir string, logger *slog.Logger) (*CredentialStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating credential dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialStore{dir: dir, logger: logger}, nil
}

func (s *CredentialStore) credentialPath() string { return filepath.Join(s.dir, credentialFile) }
func (s *CredentialStore) tokensPath() string     { return filepath.Join(s.dir, tokensFile) }

// Save overwrites the stored credential with the token and user as one
// document.
func (s *CredentialStore) Save(_ context.Context, token string, user *collabauth.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred := collabauth.PersistedCredential{
		Token:   token,
		User:    user,
		SavedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(&cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	if err := writeAtomicFile(s.credentialPath(), data); err != nil {
		return fmt.Errorf("writing credential: %w", err)
	}
	return nil
}

// Load returns the stored credential. Absent and unparseable files both
// read as (nil, nil): an unreadable credential is equivalent to none.
func (s *CredentialStore) Load(_ context.Context) (*collabauth.PersistedCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.credentialPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential: %w", err)
	}

	var cred collabauth.PersistedCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Warn("discarding unparseable credential file", "path", s.credentialPath(), "err", err)
		return nil, nil
	}
	return &cred, nil
}

// Clear removes the stored credential and any stored provider tokens.
// Clearing an empty store succeeds.
func (s *CredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := removeIfExists(s.credentialPath()); err != nil {
		return fmt.Errorf("removing credential: %w", err)
	}
	if err := removeIfExists(s.tokensPath()); err != nil {
		return fmt.Errorf("removing stored tokens: %w", err)
	}
	return nil
}

// persistedTokens is the wire shape of the provider token file.
type persistedTokens struct {
	Provider string         `json:"provider"`
	Token    *xoauth2.Token `json:"token"`
	SavedAt  time.Time      `json:"savedAt"`
}

// SaveToken stores the provider token document, replacing any previous one.
func (s *CredentialStore) SaveToken(providerID string, token *xoauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(&persistedTokens{
		Provider: providerID,
		Token:    token,
		SavedAt:  time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tokens: %w", err)
	}
	if err := writeAtomicFile(s.tokensPath(), data); err != nil {
		return fmt.Errorf("writing tokens: %w", err)
	}
	return nil
}

// LoadToken returns the stored provider token, or ("", nil, nil) when none
// is stored.
func (s *CredentialStore) LoadToken() (string, *xoauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.tokensPath())
	if os.IsNotExist(err) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("reading tokens: %w", err)
	}

	var pt persistedTokens
	if err := json.Unmarshal(data, &pt); err != nil {
		return "", nil, fmt.Errorf("decoding tokens: %w", err)
	}
	return pt.Provider, pt.Token, nil
}

// ClearTokens removes the stored provider tokens.
func (s *CredentialStore) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeIfExists(s.tokensPath())
}
