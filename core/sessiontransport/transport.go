package sessiontransport

import (
	"errors"
	"net/http"
	"time"
)

// Transport carries a session token between client and server.
type Transport interface {
	// Extract returns the token presented by the request or ErrNoToken.
	Extract(r *http.Request) (string, error)
	// Embed hands token to the client until expiresAt.
	Embed(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) error
	// Revoke tells the client to forget its token.
	Revoke(w http.ResponseWriter, r *http.Request)
}

// Chain tries transports in order. Extract returns the first token found;
// Embed and Revoke apply to every transport.
type Chain []Transport

func (c Chain) Extract(r *http.Request) (string, error) {
	for _, t := range c {
		token, err := t.Extract(r)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrNoToken) {
			return "", err
		}
	}
	return "", ErrNoToken
}

func (c Chain) Embed(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) error {
	for _, t := range c {
		if err := t.Embed(w, r, token, expiresAt); err != nil {
			return err
		}
	}
	return nil
}

func (c Chain) Revoke(w http.ResponseWriter, r *http.Request) {
	for _, t := range c {
		t.Revoke(w, r)
	}
}
