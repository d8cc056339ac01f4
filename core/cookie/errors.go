package cookie

import (
	"errors"
	"fmt"
)

var (
	ErrNoSecret         = errors.New("no secret provided for cookie manager")
	ErrSecretTooShort   = errors.New("secret must be at least 32 characters long")
	ErrInvalidSignature = errors.New("cookie signature verification failed")
	ErrCookieNotFound   = errors.New("cookie not found in request")
	ErrInvalidFormat    = errors.New("invalid cookie format")
)

// ErrCookieTooLarge is returned when the serialized cookie exceeds the size limit.
type ErrCookieTooLarge struct {
	Name string
	Size int
	Max  int
}

func (e ErrCookieTooLarge) Error() string {
	return fmt.Sprintf("cookie %q size %d exceeds maximum %d bytes", e.Name, e.Size, e.Max)
}
