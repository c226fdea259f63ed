package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// State identifies where an exchange currently is in the authorization-code
// flow. Transitions only move forward; a failed attempt ends in StateFailed
// and a new Run starts over from StateIdle.
type State int

const (
	StateIdle State = iota
	StateAuthorizationRequested
	StateCodeReceived
	StateTokenExchanged
	StateProfileFetched
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthorizationRequested:
		return "authorization_requested"
	case StateCodeReceived:
		return "code_received"
	case StateTokenExchanged:
		return "token_exchanged"
	case StateProfileFetched:
		return "profile_fetched"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FailureReason classifies why a flow failed, distinguishing the user
// backing out from provider and transport problems.
type FailureReason string

const (
	ReasonUserCancelled   FailureReason = "user_cancelled"
	ReasonNetwork         FailureReason = "network_error"
	ReasonProvider        FailureReason = "provider_error"
	ReasonInvalidResponse FailureReason = "invalid_response"
)

// ErrCancelled reports that the user abandoned the authorization step.
var ErrCancelled = errors.New("authorization cancelled by user")

// FlowError carries the state the flow was in when it failed and a
// classification of the failure.
type FlowError struct {
	Provider string
	State    State
	Reason   FailureReason
	Err      error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("oauth2 %s flow failed at %s (%s): %v", e.Provider, e.State, e.Reason, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// Callback is what the authorizer captured from the provider redirect.
type Callback struct {
	Code  string
	State string
}

// Authorizer obtains user consent. It opens (or surfaces) the authorization
// URL and blocks until the provider redirects back with a code, the user
// cancels, or ctx is done. Implementations return ErrCancelled (possibly
// wrapped) when the user backs out.
type Authorizer interface {
	Authorize(ctx context.Context, authURL, state string) (*Callback, error)
}

// TokenStore persists provider tokens across restarts so refresh grants can
// run without a new consent round-trip.
type TokenStore interface {
	SaveToken(providerID string, token *oauth2.Token) error
	LoadToken() (providerID string, token *oauth2.Token, err error)
	ClearTokens() error
}

// Result is the outcome of a completed flow.
type Result struct {
	Profile Profile
	Token   *oauth2.Token
}

// Exchange drives the authorization-code flow for a single provider:
// authorization URL, consent, code-for-token exchange, profile fetch,
// normalization. Run serializes itself; at most one attempt per Exchange is
// in flight at a time.
type Exchange struct {
	provider   *Provider
	authorizer Authorizer
	tokens     TokenStore
	httpClient *http.Client
	logger     *slog.Logger

	runMu   sync.Mutex
	stateMu sync.Mutex
	state   State
}

// ExchangeOption configures an Exchange.
type ExchangeOption func(*Exchange)

// WithTokenStore persists tokens on completion and enables Refresh.
func WithTokenStore(ts TokenStore) ExchangeOption {
	return func(e *Exchange) { e.tokens = ts }
}

// WithHTTPClient overrides the HTTP client used for the token exchange and
// the profile fetch. Tests point this at httptest servers.
func WithHTTPClient(c *http.Client) ExchangeOption {
	return func(e *Exchange) { e.httpClient = c }
}

// WithExchangeLogger sets the structured logger. Defaults to slog.Default().
func WithExchangeLogger(logger *slog.Logger) ExchangeOption {
	return func(e *Exchange) { e.logger = logger }
}

// NewExchange builds an exchange for the provider using the given
// authorizer for the consent step.
func NewExchange(p *Provider, a Authorizer, opts ...ExchangeOption) *Exchange {
	e := &Exchange{
		provider:   p,
		authorizer: a,
		logger:     slog.Default(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current flow state.
func (e *Exchange) State() State {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.state
}

func (e *Exchange) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

func (e *Exchange) fail(reason FailureReason, err error) error {
	ferr := &FlowError{
		Provider: e.provider.ID,
		State:    e.State(),
		Reason:   reason,
		Err:      err,
	}
	e.setState(StateFailed)
	e.logger.Warn("oauth2 flow failed",
		"provider", e.provider.ID, "state", ferr.State.String(), "reason", string(reason), "err", err)
	return ferr
}

// GenerateState produces an unguessable value for the OAuth2 state
// parameter.
func GenerateState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state parameter: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Run executes one complete flow. Every failure path returns a *FlowError
// and leaves the exchange in StateFailed; a later Run starts fresh.
func (e *Exchange) Run(ctx context.Context) (*Result, error) {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	e.setState(StateIdle)

	state, err := GenerateState()
	if err != nil {
		return nil, e.fail(ReasonInvalidResponse, err)
	}

	authURL := e.provider.Config.AuthCodeURL(state, e.provider.AuthParams...)
	e.setState(StateAuthorizationRequested)
	e.logger.Info("oauth2 authorization requested", "provider", e.provider.ID)

	cb, err := e.authorizer.Authorize(ctx, authURL, state)
	if err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			return nil, e.fail(ReasonUserCancelled, err)
		}
		return nil, e.fail(ReasonProvider, err)
	}
	if cb.State != state {
		return nil, e.fail(ReasonInvalidResponse, fmt.Errorf("state parameter mismatch"))
	}
	if cb.Code == "" {
		return nil, e.fail(ReasonInvalidResponse, fmt.Errorf("callback carried no authorization code"))
	}
	e.setState(StateCodeReceived)

	tok, err := e.provider.Config.Exchange(e.withHTTPClient(ctx), cb.Code)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, e.fail(ReasonProvider, err)
		}
		return nil, e.fail(ReasonNetwork, err)
	}
	e.setState(StateTokenExchanged)

	raw, err := e.fetchUserInfo(ctx, tok)
	if err != nil {
		return nil, err
	}
	e.setState(StateProfileFetched)

	profile := Normalize(e.provider.ID, raw)
	backfillFromIDToken(&profile, tok)
	if profile.ID == "" && profile.Email == "" {
		return nil, e.fail(ReasonInvalidResponse, fmt.Errorf("profile carried neither id nor email"))
	}

	if e.tokens != nil {
		if err := e.tokens.SaveToken(e.provider.ID, tok); err != nil {
			return nil, e.fail(ReasonInvalidResponse, fmt.Errorf("storing tokens: %w", err))
		}
	}

	e.setState(StateComplete)
	e.logger.Info("oauth2 flow complete", "provider", e.provider.ID, "email", profile.Email)
	return &Result{Profile: profile, Token: tok}, nil
}

// Refresh exchanges the stored refresh token for a fresh access token and
// persists the result. It requires a token store and a previously completed
// flow for this provider.
func (e *Exchange) Refresh(ctx context.Context) (*oauth2.Token, error) {
	if e.tokens == nil {
		return nil, fmt.Errorf("no token store configured")
	}
	providerID, stored, err := e.tokens.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("loading stored tokens: %w", err)
	}
	if stored == nil || providerID != e.provider.ID {
		return nil, fmt.Errorf("no stored tokens for provider %s", e.provider.ID)
	}
	if stored.RefreshToken == "" {
		return nil, fmt.Errorf("stored tokens for %s carry no refresh token", e.provider.ID)
	}

	fresh, err := e.provider.Config.TokenSource(e.withHTTPClient(ctx), stored).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing %s token: %w", e.provider.ID, err)
	}
	if err := e.tokens.SaveToken(e.provider.ID, fresh); err != nil {
		return nil, fmt.Errorf("storing refreshed tokens: %w", err)
	}
	return fresh, nil
}

// withHTTPClient threads the configured client through x/oauth2's context
// lookup so token requests share the same transport as profile fetches.
func (e *Exchange) withHTTPClient(ctx context.Context) context.Context {
	if e.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

// fetchUserInfo retrieves the raw profile document with the bearer token.
func (e *Exchange) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.provider.UserInfoURL, nil)
	if err != nil {
		return nil, e.fail(ReasonInvalidResponse, err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	client := e.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, e.fail(ReasonNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, e.fail(ReasonProvider, fmt.Errorf("userinfo endpoint returned %s", resp.Status))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, e.fail(ReasonInvalidResponse, fmt.Errorf("decoding userinfo response: %w", err))
	}
	return raw, nil
}
