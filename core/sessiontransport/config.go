package sessiontransport

import "github.com/dmitrymomot/servicehub/core/cookie"

// Config selects the cookie used for browser sessions.
type Config struct {
	CookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"__session"`
	BearerHeader bool   `env:"SESSION_BEARER_ENABLED" envDefault:"true"`
}

// NewFromConfig builds the transport chain: the signed cookie first, then
// the bearer header when enabled.
func NewFromConfig(cfg Config, cookies *cookie.Manager) Transport {
	name := cfg.CookieName
	if name == "" {
		name = "__session"
	}
	chain := Chain{NewCookie(cookies, name)}
	if cfg.BearerHeader {
		chain = append(chain, NewHeader())
	}
	return chain
}
