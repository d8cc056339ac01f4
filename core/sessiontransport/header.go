package sessiontransport

import (
	"net/http"
	"strings"
	"time"
)

const (
	// AuthorizationHeader carries "Bearer <token>" on requests.
	AuthorizationHeader = "Authorization"
	// TokenHeader returns a freshly issued token to API clients.
	TokenHeader = "X-Session-Token"
)

// Header reads the token from the Authorization bearer scheme. It lets
// non-browser clients and websocket handshakes authenticate without cookies.
type Header struct{}

// NewHeader creates a bearer header transport.
func NewHeader() Header { return Header{} }

func (Header) Extract(r *http.Request) (string, error) {
	v := r.Header.Get(AuthorizationHeader)
	if v == "" {
		return "", ErrNoToken
	}
	scheme, token, ok := strings.Cut(v, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

func (Header) Embed(w http.ResponseWriter, _ *http.Request, token string, _ time.Time) error {
	w.Header().Set(TokenHeader, token)
	return nil
}

func (Header) Revoke(http.ResponseWriter, *http.Request) {}
