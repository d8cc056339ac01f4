package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/logger"
)

type statusRecorder interface {
	Status() int
}

// LoggingConfig controls request logging.
type LoggingConfig struct {
	Logger               *slog.Logger
	Skip                 func(r *http.Request) bool
	SlowRequestThreshold time.Duration
}

// Logging writes one line per request after the response is rendered.
func Logging[C handler.Context](log *slog.Logger) handler.Middleware[C] {
	return LoggingWithConfig[C](LoggingConfig{Logger: log})
}

func LoggingWithConfig[C handler.Context](cfg LoggingConfig) handler.Middleware[C] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	log := cfg.Logger.With(logger.Component("http"))

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if cfg.Skip != nil && cfg.Skip(ctx.Request()) {
				return next(ctx)
			}

			start := time.Now()
			resp := next(ctx)

			return func(w http.ResponseWriter, r *http.Request) error {
				err := resp(w, r)

				status := http.StatusOK
				if sr, ok := w.(statusRecorder); ok && sr.Status() != 0 {
					status = sr.Status()
				}
				requestID, _ := GetRequestID(r.Context())

				attrs := []slog.Attr{
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.StatusCode(status),
					logger.Elapsed(start),
					logger.RequestID(requestID),
				}
				if ip, ok := GetClientIP(r.Context()); ok {
					attrs = append(attrs, logger.ClientIP(ip))
				}
				if err != nil {
					attrs = append(attrs, logger.Error(err))
				}

				level := slog.LevelInfo
				msg := "request completed"
				switch {
				case err != nil || status >= http.StatusInternalServerError:
					level = slog.LevelError
					msg = "request failed"
				case time.Since(start) > cfg.SlowRequestThreshold:
					level = slog.LevelWarn
					msg = "slow request"
				}
				log.LogAttrs(r.Context(), level, msg, attrs...)
				return err
			}
		}
	}
}
