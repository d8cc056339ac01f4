package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	cache      sync.Map // reflect.Type -> any (value of T)
)

// Load fills cfg from the environment. The first call for a given type parses
// the environment; later calls copy the cached value.
// .env files in the working directory are loaded once, without overriding
// variables that are already set.
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}

	typ := reflect.TypeOf(cfg).Elem()
	if cached, ok := cache.Load(typ); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := loadDotenv(); err != nil {
		return err
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParse, err)
	}

	actual, _ := cache.LoadOrStore(typ, parsed)
	*cfg = actual.(T)
	return nil
}

// MustLoad is Load that panics on error. Intended for process start-up.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Parse fills cfg from the environment without touching the cache.
// Useful in tests that set variables with t.Setenv.
func Parse[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParse, err)
	}
	return nil
}

func loadDotenv() error {
	var err error
	dotenvOnce.Do(func() {
		if loadErr := godotenv.Load(); loadErr != nil && !errors.Is(loadErr, fs.ErrNotExist) {
			err = errors.Join(ErrDotenv, loadErr)
		}
	})
	return err
}
