package app

import (
	"errors"
	"fmt"
)

var ErrUnsupportedBackend = errors.New("unsupported backend")

func unsupported(variable, value string) error {
	return fmt.Errorf("%w: %s=%q", ErrUnsupportedBackend, variable, value)
}
