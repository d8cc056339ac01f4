package app

import (
	"github.com/dmitrymomot/servicehub/core/cookie"
	"github.com/dmitrymomot/servicehub/core/event/redisbus"
	"github.com/dmitrymomot/servicehub/core/server"
	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/core/sessiontransport"
	"github.com/dmitrymomot/servicehub/integration/database/mongo"
	"github.com/dmitrymomot/servicehub/integration/database/redis"
	"github.com/dmitrymomot/servicehub/internal/httpapi"
	"github.com/dmitrymomot/servicehub/internal/realtime"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

type Config struct {
	Name     string `env:"APP_NAME" envDefault:"servicehub"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DataStore is mongo or memory.
	DataStore string `env:"DATA_STORE" envDefault:"mongo"`
	// SessionStore is redis, mongo or memory.
	SessionStore string `env:"SESSION_STORE" envDefault:"redis"`
	// EventBus is redis or memory.
	EventBus string `env:"EVENT_BUS" envDefault:"redis"`

	Server    server.Config
	Mongo     mongo.Config
	Redis     redis.Config
	Cookie    cookie.Config
	Session   session.Config
	Transport sessiontransport.Config
	Events    redisbus.Config
	Realtime  realtime.Config
	API       httpapi.Config
	Admin     AdminConfig
}

// AdminConfig seeds the bootstrap admin. An empty email skips seeding.
type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Name     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) needsRedis() bool {
	return c.SessionStore == BackendRedis || c.EventBus == BackendRedis
}

func (c Config) needsMongo() bool {
	return c.DataStore == BackendMongo || c.SessionStore == BackendMongo
}

func (c Config) validate() error {
	switch c.DataStore {
	case BackendMongo, BackendMemory:
	default:
		return unsupported("DATA_STORE", c.DataStore)
	}
	switch c.SessionStore {
	case BackendRedis, BackendMongo, BackendMemory:
	default:
		return unsupported("SESSION_STORE", c.SessionStore)
	}
	switch c.EventBus {
	case BackendRedis, BackendMemory:
	default:
		return unsupported("EVENT_BUS", c.EventBus)
	}
	return nil
}
