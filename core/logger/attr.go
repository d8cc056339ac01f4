package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers return the empty Attr for nil or zero inputs, which slog drops.
// That keeps call sites free of nil checks: log.Error("msg", logger.Error(err)).

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed reports the time since start as "elapsed".
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ID returns an attribute for an identifier, or the empty Attr when value is empty.
func ID(key string, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}

func RequestID(id string) slog.Attr  { return ID("request_id", id) }
func UserID(id string) slog.Attr     { return ID("user_id", id) }
func SessionID(id string) slog.Attr  { return ID("session_id", id) }
func OrderID(id string) slog.Attr    { return ID("order_id", id) }
func CustomerID(id string) slog.Attr { return ID("customer_id", id) }
func ProductID(id string) slog.Attr  { return ID("product_id", id) }

// HTTP request attributes.

func Method(method string) slog.Attr { return slog.String("method", method) }
func Path(path string) slog.Attr     { return slog.String("path", path) }
func StatusCode(code int) slog.Attr  { return slog.Int("status", code) }
func ClientIP(ip string) slog.Attr   { return ID("client_ip", ip) }
func UserAgent(ua string) slog.Attr  { return ID("user_agent", ua) }

// Application attributes.

func Component(name string) slog.Attr { return slog.String("component", name) }
func Event(name string) slog.Attr     { return slog.String("event", name) }
func Action(action string) slog.Attr  { return slog.String("action", action) }
func State(state string) slog.Attr    { return slog.String("state", state) }
func Version(v string) slog.Attr      { return slog.String("version", v) }
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// RetryCount records the attempt number; zero is omitted.
func RetryCount(count int) slog.Attr {
	if count == 0 {
		return slog.Attr{}
	}
	return slog.Int("retry_count", count)
}
