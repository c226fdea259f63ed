package collabauth

import (
	"context"
	"fmt"
)

// Backend is one source of password-verifiable users. Backends differ in
// where records live and how passwords are checked, not in flow.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// FindByEmail performs a case-insensitive lookup, returning (nil, nil)
	// when the backend does not know the email.
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)

	// VerifyPassword checks the candidate password against the record this
	// backend returned. It may also enforce backend-specific account
	// policy (the directory backend rejects unverified accounts).
	VerifyPassword(user *UserRecord, password string) error
}

// Resolver tries backends in order and stops at the first one that knows
// the email. This makes the local-before-remote precedence rule a wiring
// decision rather than an accident of call order.
type Resolver struct {
	backends []Backend
}

// NewResolver builds a resolver over the given backends, consulted in
// argument order.
func NewResolver(backends ...Backend) *Resolver {
	return &Resolver{backends: backends}
}

// Resolve authenticates the email/password pair. The first backend that
// returns a record decides the outcome: a password mismatch there fails
// the whole resolution, later backends are not consulted. Returns the
// sanitized record on success.
func (r *Resolver) Resolve(ctx context.Context, email, password string) (*UserRecord, error) {
	for _, b := range r.backends {
		user, err := b.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", b.Name(), err)
		}
		if user == nil {
			continue
		}
		if err := b.VerifyPassword(user, password); err != nil {
			return nil, err
		}
		return user.Sanitized(), nil
	}
	return nil, userNotFound()
}

// RegistrationBackend adapts a RegistrationStore to the Backend interface.
// Locally registered users carry bcrypt hashes.
type RegistrationBackend struct {
	Store RegistrationStore
}

func (b *RegistrationBackend) Name() string { return "local" }

func (b *RegistrationBackend) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return b.Store.FindByEmail(ctx, email)
}

func (b *RegistrationBackend) VerifyPassword(user *UserRecord, password string) error {
	return VerifyPassword(user.Password, password)
}

// DirectoryBackend adapts a read-only UserSource to the Backend interface.
// Directory records carry plaintext passwords and an explicit verification
// flag; unverified accounts are rejected before the password is checked.
type DirectoryBackend struct {
	Source UserSource
}

func (b *DirectoryBackend) Name() string { return "directory" }

func (b *DirectoryBackend) FindByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return b.Source.FindByEmail(ctx, email)
}

func (b *DirectoryBackend) VerifyPassword(user *UserRecord, password string) error {
	if !user.AccountSettings.IsVerified {
		return unverifiedAccount()
	}
	if user.Password != password {
		return invalidCredentials()
	}
	return nil
}
