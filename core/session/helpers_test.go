package session_test

import (
	"log/slog"

	"github.com/dmitrymomot/servicehub/core/logger"
)

func nopLogger() *slog.Logger { return logger.Nop() }
