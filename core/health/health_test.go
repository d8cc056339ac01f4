package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/health"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
)

func TestLiveness(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/health", health.Liveness[*router.Context])

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var st health.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "ok", st.Status)
	assert.WithinDuration(t, time.Now(), st.Timestamp, 5*time.Second)
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("mongo down") }

	tests := []struct {
		name   string
		checks []func(context.Context) error
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{"all pass", []func(context.Context) error{ok, ok}, http.StatusOK},
		{"one fails", []func(context.Context) error{ok, failing}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := router.New[*router.Context](router.WithErrorHandler(response.JSONErrorHandler[*router.Context]))
			r.Get("/ready", health.Readiness[*router.Context](logger.Nop(), tt.checks...))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
