package realtime

import "time"

// Config holds websocket tuning. AllowedOrigins is filled from the CORS
// allow-list rather than its own variable.
type Config struct {
	SendBuffer     int           `env:"REALTIME_SEND_BUFFER" envDefault:"64"`
	WriteTimeout   time.Duration `env:"REALTIME_WRITE_TIMEOUT" envDefault:"10s"`
	PingInterval   time.Duration `env:"REALTIME_PING_INTERVAL" envDefault:"30s"`
	PongTimeout    time.Duration `env:"REALTIME_PONG_TIMEOUT" envDefault:"60s"`
	MaxMessageSize int64         `env:"REALTIME_MAX_MESSAGE_SIZE" envDefault:"4096"`
	AllowAnonymous bool          `env:"REALTIME_ALLOW_ANONYMOUS" envDefault:"true"`
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PongTimeout <= c.PingInterval {
		c.PongTimeout = 2 * c.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
	return c
}
