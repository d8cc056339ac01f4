package cookie

import (
	"net/http"
	"strings"
)

// Config holds cookie settings loaded from the environment.
// Secrets is a comma-separated list; the first entry signs new cookies.
type Config struct {
	Secrets  string `env:"COOKIE_SECRETS,required"`
	Path     string `env:"COOKIE_PATH" envDefault:"/"`
	Domain   string `env:"COOKIE_DOMAIN" envDefault:""`
	Secure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	HttpOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite string `env:"COOKIE_SAME_SITE" envDefault:"lax"`
}

func (c Config) parseSecrets() []string {
	var secrets []string
	for _, s := range strings.Split(c.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// ParseSameSite maps "lax", "strict" and "none" to http.SameSite.
// Unknown values fall back to Lax.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// NewFromConfig creates a Manager from cfg; opts override config values.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	configOpts := []Option{
		WithHTTPOnly(cfg.HttpOnly),
		WithSecure(cfg.Secure),
		WithSameSite(ParseSameSite(cfg.SameSite)),
	}
	if cfg.Path != "" {
		configOpts = append(configOpts, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		configOpts = append(configOpts, WithDomain(cfg.Domain))
	}
	return New(cfg.parseSecrets(), append(configOpts, opts...)...)
}
