package sessiontransport

import "errors"

var (
	ErrNoToken      = errors.New("sessiontransport: no token")
	ErrInvalidToken = errors.New("sessiontransport: invalid token")
	ErrExpiredToken = errors.New("sessiontransport: token already expired")
)
