package sessiontransport

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrymomot/servicehub/core/cookie"
)

// Cookie stores the session token in a signed HTTP-only cookie.
type Cookie struct {
	cookies *cookie.Manager
	name    string
	now     func() time.Time
}

// NewCookie creates a cookie transport using the given cookie name.
func NewCookie(cookies *cookie.Manager, name string) *Cookie {
	return &Cookie{cookies: cookies, name: name, now: time.Now}
}

func (c *Cookie) Extract(r *http.Request) (string, error) {
	token, err := c.cookies.GetSigned(r, c.name)
	switch {
	case err == nil:
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	case errors.Is(err, cookie.ErrCookieNotFound):
		return "", ErrNoToken
	default:
		return "", errors.Join(ErrInvalidToken, err)
	}
}

func (c *Cookie) Embed(w http.ResponseWriter, _ *http.Request, token string, expiresAt time.Time) error {
	maxAge := int(expiresAt.Sub(c.now()).Seconds())
	if maxAge <= 0 {
		return ErrExpiredToken
	}
	return c.cookies.SetSigned(w, c.name, token,
		cookie.WithHTTPOnly(true),
		cookie.WithMaxAge(maxAge),
	)
}

func (c *Cookie) Revoke(w http.ResponseWriter, _ *http.Request) {
	c.cookies.Delete(w, c.name)
}
