package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/config"
)

type nested struct {
	TTL time.Duration `env:"CFGTEST_TTL" envDefault:"168h"`
}

type sample struct {
	Name    string   `env:"CFGTEST_NAME" envDefault:"servicehub"`
	Origins []string `env:"CFGTEST_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	Nested  nested
}

type required struct {
	Secret string `env:"CFGTEST_REQUIRED_SECRET,required"`
}

func TestParse(t *testing.T) {
	t.Setenv("CFGTEST_NAME", "hub")
	t.Setenv("CFGTEST_ORIGINS", "https://a.example,https://b.example")

	var cfg sample
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, "hub", cfg.Name)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins)
	assert.Equal(t, 168*time.Hour, cfg.Nested.TTL)
}

func TestParseRequired(t *testing.T) {
	var cfg required
	assert.ErrorIs(t, config.Parse(&cfg), config.ErrParse)
	assert.ErrorIs(t, config.Parse[required](nil), config.ErrNilConfig)
}

func TestLoadCachesPerType(t *testing.T) {
	type cached struct {
		Value string `env:"CFGTEST_CACHED" envDefault:"first"`
	}

	var first cached
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Value)

	t.Setenv("CFGTEST_CACHED", "second")
	var again cached
	require.NoError(t, config.Load(&again))
	assert.Equal(t, "first", again.Value)
}

func TestMustLoadPanics(t *testing.T) {
	type mustFail struct {
		Secret string `env:"CFGTEST_MUST_SECRET,required"`
	}
	assert.Panics(t, func() {
		var cfg mustFail
		config.MustLoad(&cfg)
	})
}
