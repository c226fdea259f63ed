package collabauth

import "context"

// CredentialStore persists the current session as a single unit. The token
// and user snapshot are written together so a crash cannot leave a token
// without its user (or vice versa).
type CredentialStore interface {
	// Save overwrites the stored credential.
	Save(ctx context.Context, token string, user *UserRecord) error

	// Load returns the stored credential, or (nil, nil) when nothing is
	// stored or the stored bytes cannot be parsed.
	Load(ctx context.Context) (*PersistedCredential, error)

	// Clear deletes the stored credential. Clearing an empty store is not
	// an error.
	Clear(ctx context.Context) error
}

// RegistrationStore is the writable, device-local user source for accounts
// created through in-app sign-up. Implementations validate and hash before
// persisting; on any validation violation nothing is written.
type RegistrationStore interface {
	// Register validates the payload, hashes its password and appends the
	// record. Fails with ErrDuplicateEmail when a case-insensitive email
	// match already exists, or with *ValidationError listing violations.
	// The returned record is sanitized.
	Register(ctx context.Context, user *UserRecord) (*UserRecord, error)

	// FindByEmail performs a case-insensitive lookup. Returns (nil, nil)
	// when no record matches. The returned record retains its password
	// hash so callers can verify credentials.
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)

	// Update applies a partial update to the record with the given id.
	// Fails with ErrNotFound when the id is unknown. The returned record
	// is sanitized.
	Update(ctx context.Context, id string, patch *UserPatch) (*UserRecord, error)

	// Remove deletes the record with the given id, reporting whether a
	// record was removed.
	Remove(ctx context.Context, id string) (bool, error)

	// All returns every locally registered record, sanitized.
	All(ctx context.Context) ([]*UserRecord, error)
}

// UserSource is a read-only user lookup. The remote directory client
// implements it; the Resolver consumes it.
type UserSource interface {
	// FindByEmail performs a case-insensitive lookup, returning (nil, nil)
	// when no record matches.
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
}
