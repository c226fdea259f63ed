package collabauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	o2 "github.com/prohub/collabauth/oauth2"
)

// OAuth2Flow runs a complete authorization-code flow for one provider.
// *oauth2.Exchange is the production implementation; tests inject scripted
// flows.
type OAuth2Flow interface {
	Run(ctx context.Context) (*o2.Result, error)
}

// Service orchestrates credential verification, session issuance and
// logout. All dependencies are injected; construct one per process and
// hand it to a SessionContext.
type Service struct {
	registration RegistrationStore
	directory    UserSource
	credentials  CredentialStore
	resolver     *Resolver
	flows        map[string]OAuth2Flow
	logger       *slog.Logger
	now          func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithOAuth2Flow registers the flow used for AuthenticateWithOAuth2 calls
// naming the given provider.
func WithOAuth2Flow(providerID string, flow OAuth2Flow) ServiceOption {
	return func(s *Service) { s.flows[providerID] = flow }
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires the authentication service. The local registration
// store is consulted before the remote directory, in that fixed order.
func NewService(registration RegistrationStore, directory UserSource, credentials CredentialStore, opts ...ServiceOption) *Service {
	s := &Service{
		registration: registration,
		directory:    directory,
		credentials:  credentials,
		flows:        make(map[string]OAuth2Flow),
		logger:       slog.Default(),
		now:          time.Now,
	}
	s.resolver = NewResolver(
		&RegistrationBackend{Store: registration},
		&DirectoryBackend{Source: directory},
	)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthenticateWithPassword verifies the email/password pair against the
// local store first, then the remote directory. On success a fresh session
// token is synthesized, the token and user snapshot are persisted, and the
// sanitized record is returned.
func (s *Service) AuthenticateWithPassword(ctx context.Context, email, password string) (*UserRecord, error) {
	user, err := s.resolver.Resolve(ctx, email, password)
	if err != nil {
		s.logger.Warn("password authentication failed", "email", email, "err", err)
		return nil, err
	}

	user.Metadata.LastLoginMethod = RegistrationPassword
	user.TouchLastActive(s.now())

	if err := s.persistSession(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated", "user", user.FullName(), "method", RegistrationPassword)
	return user, nil
}

// AuthenticateWithOAuth2 drives the registered flow for the provider to
// completion. When the provider-reported email matches a directory user,
// that user is logged in and (user, true, nil) is returned. Otherwise a
// minimal unpersisted record is synthesized from the provider profile and
// returned as (user, false, nil); the caller must complete registration to
// keep it. The record starts out verified only when the email belongs to a
// recognized academic domain.
func (s *Service) AuthenticateWithOAuth2(ctx context.Context, providerID string) (*UserRecord, bool, error) {
	flow, ok := s.flows[providerID]
	if !ok {
		return nil, false, fmt.Errorf("oauth2 provider %q not configured", providerID)
	}

	res, err := flow.Run(ctx)
	if err != nil {
		s.logger.Warn("oauth2 authentication failed", "provider", providerID, "err", err)
		return nil, false, err
	}

	if res.Profile.Email == "" {
		return nil, false, NewAuthError(ErrCodeProviderMismatch,
			fmt.Sprintf("%s did not return an email address for this account", providerID),
			"", ErrProviderMismatch)
	}

	existing, err := s.directory.FindByEmail(ctx, res.Profile.Email)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		user := existing.Sanitized()
		user.Metadata.LastLoginMethod = RegistrationOAuth2
		user.Metadata.LastOAuth2Provider = providerID
		user.TouchLastActive(s.now())
		if err := s.persistSession(ctx, user); err != nil {
			return nil, false, err
		}
		s.logger.Info("user authenticated", "user", user.FullName(), "method", RegistrationOAuth2, "provider", providerID)
		return user, true, nil
	}

	return s.synthesizeOAuth2User(&res.Profile), false, nil
}

// synthesizeOAuth2User builds a minimal, unpersisted record from a
// normalized provider profile.
func (s *Service) synthesizeOAuth2User(p *o2.Profile) *UserRecord {
	now := s.now().UTC().Format(time.RFC3339)
	return &UserRecord{
		ID:    NewUserID(),
		Email: p.Email,
		PersonalInfo: PersonalInfo{
			FirstName: p.FirstName,
			LastName:  p.LastName,
		},
		AcademicInfo: AcademicInfo{
			University: UniversityFromEmail(p.Email),
		},
		AccountSettings: AccountSettings{
			IsVerified:          IsAcademicEmail(p.Email),
			ProfileVisibility:   "public",
			CollaborationStatus: "open",
		},
		Metadata: UserMetadata{
			CreatedAt:          now,
			LastActive:         now,
			ProfileImageID:     p.Picture,
			RegistrationMethod: RegistrationOAuth2,
			LastOAuth2Provider: p.Provider,
		},
	}
}

// Register creates a local account. Validation and duplicate-email
// handling are delegated to the registration store.
func (s *Service) Register(ctx context.Context, user *UserRecord) (*UserRecord, error) {
	stored, err := s.registration.Register(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user", stored.FullName())
	return stored, nil
}

// ResolveSession restores a previously persisted session. A stored token
// is sufficient on its own: tokens are never validated against a server,
// so any outstanding token counts as a live session until Logout.
func (s *Service) ResolveSession(ctx context.Context) (bool, *UserRecord, error) {
	cred, err := s.credentials.Load(ctx)
	if err != nil {
		return false, nil, err
	}
	if cred == nil || cred.Token == "" {
		return false, nil, nil
	}
	return true, cred.User, nil
}

// HasValidSession reports whether a session is currently persisted.
func (s *Service) HasValidSession(ctx context.Context) bool {
	ok, _, err := s.ResolveSession(ctx)
	return err == nil && ok
}

// Logout discards the persisted session. Logging out with no session
// stored is a no-op.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.credentials.Clear(ctx); err != nil {
		return fmt.Errorf("clearing credentials: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

// persistSession writes the token and user snapshot as one unit. Failures
// propagate unrecovered; there is no retry.
func (s *Service) persistSession(ctx context.Context, user *UserRecord) error {
	token := NewSessionToken(user)
	if err := s.credentials.Save(ctx, token, user); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}
