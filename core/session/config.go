package session

import "time"

// Config holds session settings loaded from the environment.
type Config struct {
	TTL             time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	TouchInterval   time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"1m"`
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`
}

type Option func(*options)

type options struct {
	ttl           time.Duration
	touchInterval time.Duration
	now           func() time.Time
}

func defaultOptions() *options {
	return &options{
		ttl:           7 * 24 * time.Hour,
		touchInterval: time.Minute,
		now:           time.Now,
	}
}

// WithTTL sets the sliding expiration window.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithTouchInterval sets the minimum time between persisted touches. Zero touches on every access.
func WithTouchInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval >= 0 {
			o.touchInterval = interval
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// FromConfig converts cfg into options.
func FromConfig(cfg Config) []Option {
	return []Option{WithTTL(cfg.TTL), WithTouchInterval(cfg.TouchInterval)}
}
