package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/response"
)

// Readiness runs every check in order and returns 503 on the first failure.
func Readiness[C handler.Context](log *slog.Logger, checks ...func(context.Context) error) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				return response.Error(response.ErrServiceUnavailable)
			}
		}

		return response.JSON(Status{Status: "ready", Timestamp: time.Now().UTC()})
	}
}
