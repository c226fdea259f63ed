package collabauth

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the authentication flow. Callers classify failures
// with errors.Is; the AuthError wrapper adds a machine-readable code and a
// display message on top.
var (
	// ErrNetwork covers transport failures and non-2xx responses from the
	// remote directory or an OAuth2 endpoint.
	ErrNetwork = errors.New("network error")

	// ErrParse covers structurally invalid remote payloads.
	ErrParse = errors.New("malformed payload")

	// ErrInvalidCredentials is returned when the email is known but the
	// password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound is returned when no backend knows the email.
	ErrUserNotFound = errors.New("user not found")

	// ErrUnverifiedAccount is returned for directory users whose account
	// has not been verified, regardless of password correctness.
	ErrUnverifiedAccount = errors.New("account not verified")

	// ErrDuplicateEmail is returned by Register when a case-insensitive
	// email match already exists in the local store.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNotFound is returned by Update/Remove when no local record has
	// the given id.
	ErrNotFound = errors.New("record not found")

	// ErrProviderMismatch is returned when an OAuth2 provider completes
	// the flow without a usable email address.
	ErrProviderMismatch = errors.New("provider returned no usable email")
)

// Error codes carried by AuthError, stable across releases so UI layers can
// switch on them.
const (
	ErrCodeNetwork          = "network_error"
	ErrCodeParse            = "parse_error"
	ErrCodeInvalidCreds     = "invalid_credentials"
	ErrCodeUserNotFound     = "user_not_found"
	ErrCodeUnverified       = "unverified_account"
	ErrCodeDuplicateEmail   = "duplicate_email"
	ErrCodeNotFound         = "not_found"
	ErrCodeValidation       = "validation_failed"
	ErrCodeProviderMismatch = "provider_mismatch"
)

// AuthError is the error type surfaced across component boundaries. Message
// is suitable for direct display; Field names the offending input when one
// can be identified.
type AuthError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *AuthError) Error() string { return e.Message }

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError builds an AuthError wrapping the given sentinel.
func NewAuthError(code, message, field string, err error) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field, Err: err}
}

// ValidationError carries the full list of field-level violations found
// during registration. Registration is rejected wholesale when any
// violation exists; nothing is persisted.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// invalidCredentials wraps ErrInvalidCredentials with the app's display
// message.
func invalidCredentials() error {
	return NewAuthError(ErrCodeInvalidCreds, "Invalid password. Please try again.", "password", ErrInvalidCredentials)
}

func userNotFound() error {
	return NewAuthError(ErrCodeUserNotFound, "User not found. Please check your email address.", "email", ErrUserNotFound)
}

func unverifiedAccount() error {
	return NewAuthError(ErrCodeUnverified, "Your account is not verified. Please contact your administrator.", "", ErrUnverifiedAccount)
}

func duplicateEmail(email string) error {
	return NewDuplicateEmailError(email)
}

// NewDuplicateEmailError is the registration-store error for an email that
// already has a local account.
func NewDuplicateEmailError(email string) *AuthError {
	return NewAuthError(ErrCodeDuplicateEmail, fmt.Sprintf("User with email %s already exists", email), "email", ErrDuplicateEmail)
}

// NewNotFoundError is the registration-store error for an unknown record id.
func NewNotFoundError(id string) *AuthError {
	return NewAuthError(ErrCodeNotFound, fmt.Sprintf("No registered user with id %s", id), "id", ErrNotFound)
}
