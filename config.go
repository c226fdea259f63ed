package collabauth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultDirectoryURL is the published location of the seeded user
// directory document.
const DefaultDirectoryURL = "https://raw.githubusercontent.com/cyfocube/C_DataBase/main/database/PhD_Collab_Users/users.json"

// ProviderCredentials are the per-provider OAuth2 client settings.
type ProviderCredentials struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
}

// OAuth2Settings groups the OAuth2 client configuration for all supported
// providers plus the loopback redirect listener port.
type OAuth2Settings struct {
	LoopbackPort int                 `env:"LOOPBACK_PORT" envDefault:"8453"`
	Google       ProviderCredentials `envPrefix:"GOOGLE_"`
	Microsoft    ProviderCredentials `envPrefix:"MICROSOFT_"`
	GitHub       ProviderCredentials `envPrefix:"GITHUB_"`
	ORCID        ProviderCredentials `envPrefix:"ORCID_"`
}

// Config holds the environment-driven settings for the authentication
// core.
type Config struct {
	DirectoryURL       string         `env:"COLLAB_DIRECTORY_URL"`
	StorePath          string         `env:"COLLAB_STORE_PATH" envDefault:""`
	HTTPTimeoutSeconds int            `env:"COLLAB_HTTP_TIMEOUT" envDefault:"15"`
	OAuth2             OAuth2Settings `envPrefix:"OAUTH2_"`
}

// HTTPTimeout returns the configured network timeout as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// LoadConfig parses configuration from environment variables, filling in
// defaults for anything unset.
func LoadConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = DefaultDirectoryURL
	}
	return &cfg, nil
}
