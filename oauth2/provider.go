// Package oauth2 implements the authorization-code flow against the
// academic identity providers supported by ProHub. Providers are data-only
// configurations; the Exchange state machine is shared.
package oauth2

import (
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// Supported provider identifiers.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderGithub    = "github"
	ProviderORCID     = "orcid"
)

// Provider is a data-only OAuth2 provider configuration. Adding a provider
// means adding one constructor and one normalizer, never touching the
// Exchange.
type Provider struct {
	ID          string
	DisplayName string
	Config      oauth2.Config
	UserInfoURL string

	// AuthParams are appended to the authorization request (for example
	// Google's access_type=offline).
	AuthParams []oauth2.AuthCodeOption
}

// envOr falls back to the given environment variable when value is empty,
// so deployments can keep client credentials out of code.
func envOr(value, envVar string) string {
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(envVar))
}

// NewGoogle configures the Google provider. Empty arguments fall back to
// OAUTH2_GOOGLE_CLIENT_ID / _CLIENT_SECRET / _CALLBACK_URL.
func NewGoogle(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		ID:          ProviderGoogle,
		DisplayName: "Google",
		Config: oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_GOOGLE_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_GOOGLE_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_GOOGLE_CALLBACK_URL"),
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		AuthParams: []oauth2.AuthCodeOption{
			oauth2.SetAuthURLParam("access_type", "offline"),
			oauth2.SetAuthURLParam("prompt", "consent"),
		},
	}
}

// NewMicrosoft configures the Microsoft provider against the common
// (multi-tenant) endpoint. Empty arguments fall back to
// OAUTH2_MICROSOFT_CLIENT_ID / _CLIENT_SECRET / _CALLBACK_URL.
func NewMicrosoft(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		ID:          ProviderMicrosoft,
		DisplayName: "Microsoft",
		Config: oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_MICROSOFT_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_MICROSOFT_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_MICROSOFT_CALLBACK_URL"),
			Scopes:       []string{"openid", "profile", "email", "User.Read"},
			Endpoint:     microsoft.AzureADEndpoint("common"),
		},
		UserInfoURL: "https://graph.microsoft.com/v1.0/me",
	}
}

// NewGithub configures the GitHub provider. Empty arguments fall back to
// OAUTH2_GITHUB_CLIENT_ID / _CLIENT_SECRET / _CALLBACK_URL.
func NewGithub(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		ID:          ProviderGithub,
		DisplayName: "GitHub",
		Config: oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_GITHUB_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_GITHUB_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_GITHUB_CALLBACK_URL"),
			Scopes:       []string{"user:email", "read:user"},
			Endpoint:     github.Endpoint,
		},
		UserInfoURL: "https://api.github.com/user",
	}
}

// NewORCID configures the ORCID provider. ORCID has no x/oauth2 endpoint
// preset, so the endpoints are spelled out. Empty arguments fall back to
// OAUTH2_ORCID_CLIENT_ID / _CLIENT_SECRET / _CALLBACK_URL.
func NewORCID(clientID, clientSecret, callbackURL string) *Provider {
	return &Provider{
		ID:          ProviderORCID,
		DisplayName: "ORCID",
		Config: oauth2.Config{
			ClientID:     envOr(clientID, "OAUTH2_ORCID_CLIENT_ID"),
			ClientSecret: envOr(clientSecret, "OAUTH2_ORCID_CLIENT_SECRET"),
			RedirectURL:  envOr(callbackURL, "OAUTH2_ORCID_CALLBACK_URL"),
			Scopes:       []string{"/authenticate", "/read-limited"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://orcid.org/oauth/authorize",
				TokenURL: "https://orcid.org/oauth/token",
			},
		},
		UserInfoURL: "https://pub.orcid.org/v3.0",
	}
}
