package middleware

import (
	"net/http"

	"github.com/dmitrymomot/servicehub/core/handler"
)

// SecurityHeadersConfig lists the headers set on every API response.
// Empty values are skipped.
type SecurityHeadersConfig struct {
	ContentTypeOptions      string
	FrameOptions            string
	ReferrerPolicy          string
	StrictTransportSecurity string
	ContentSecurityPolicy   string
}

// APISecurity suits a JSON API consumed by a separate frontend origin.
var APISecurity = SecurityHeadersConfig{
	ContentTypeOptions:    "nosniff",
	FrameOptions:          "DENY",
	ReferrerPolicy:        "strict-origin-when-cross-origin",
	ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
}

// WithHSTS returns a copy of cfg that also sends Strict-Transport-Security.
func (cfg SecurityHeadersConfig) WithHSTS() SecurityHeadersConfig {
	cfg.StrictTransportSecurity = "max-age=31536000; includeSubDomains"
	return cfg
}

func SecurityHeaders[C handler.Context](cfg SecurityHeadersConfig) handler.Middleware[C] {
	headers := map[string]string{
		"X-Content-Type-Options":    cfg.ContentTypeOptions,
		"X-Frame-Options":           cfg.FrameOptions,
		"Referrer-Policy":           cfg.ReferrerPolicy,
		"Strict-Transport-Security": cfg.StrictTransportSecurity,
		"Content-Security-Policy":   cfg.ContentSecurityPolicy,
	}
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			setHeaders(ctx.ResponseWriter().Header(), headers)
			return next(ctx)
		}
	}
}

func setHeaders(h http.Header, values map[string]string) {
	for k, v := range values {
		if v != "" {
			h.Set(k, v)
		}
	}
}
