package accounts

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// BaseConfig is the environment-driven configuration for the service. It
// satisfies the Config interface the authenticator and guard consume.
type BaseConfig struct {
	SigningKey           string        `env:"JWT_SECRET"`
	SigningMethod        string        `env:"JWT_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey           string        `env:"JWT_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration      int           `env:"TOKEN_EXPIRATION" envDefault:"1"`
	TokenLookup          string        `env:"JWT_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme           string        `env:"JWT_AUTH_SCHEME" envDefault:"Bearer"`
	Issuer               string        `env:"JWT_ISSUER" envDefault:"accounts"`
	Audience             []string      `env:"JWT_AUDIENCE" envSeparator:","`
	ConfirmationTokenTTL time.Duration `env:"CONFIRMATION_TOKEN_TTL" envDefault:"48h"`
	FrontendURL          string        `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	DatabaseDSN          string        `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	HTTPAddr             string        `env:"HTTP_ADDR" envDefault:":8080"`
}

// LoadConfig reads configuration from the environment
func LoadConfig() (*BaseConfig, error) {
	cfg := &BaseConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment configuration")
	}
	return cfg, nil
}

// Validate checks the configuration the service cannot run without. A
// missing signing key is fatal at startup, never a per-request failure.
func (c *BaseConfig) Validate() error {
	if c.SigningKey == "" {
		return goerrors.New("signing key is required, set JWT_SECRET", goerrors.CategoryBadInput)
	}
	if c.TokenExpiration <= 0 {
		return goerrors.New("token expiration must be a positive number of hours", goerrors.CategoryBadInput)
	}
	return nil
}

func (c *BaseConfig) GetSigningKey() string    { return c.SigningKey }
func (c *BaseConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *BaseConfig) GetContextKey() string    { return c.ContextKey }
func (c *BaseConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c *BaseConfig) GetTokenLookup() string   { return c.TokenLookup }
func (c *BaseConfig) GetAuthScheme() string    { return c.AuthScheme }
func (c *BaseConfig) GetIssuer() string        { return c.Issuer }
func (c *BaseConfig) GetAudience() []string    { return c.Audience }

var _ Config = (*BaseConfig)(nil)
