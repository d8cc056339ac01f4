package response_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

func newRouter(h handler.HandlerFunc[*router.Context]) http.Handler {
	r := router.New[*router.Context](router.WithErrorHandler(response.JSONErrorHandler[*router.Context]))
	r.Get("/", h)
	return r
}

func do(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestJSON(t *testing.T) {
	t.Parallel()

	w := do(t, newRouter(func(ctx *router.Context) handler.Response {
		return response.JSON(map[string]string{"status": "ok"})
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestJSONWithStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		status int
		want   int
		body   string
	}{
		{"created", map[string]int{"id": 1}, http.StatusCreated, http.StatusCreated, `{"id":1}`},
		{"zero status with nil", nil, 0, http.StatusNoContent, ""},
		{"zero status with value", []int{1}, 0, http.StatusOK, `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := do(t, newRouter(func(ctx *router.Context) handler.Response {
				return response.JSONWithStatus(tt.value, tt.status)
			}))
			assert.Equal(t, tt.want, w.Code)
			if tt.body == "" {
				assert.Empty(t, w.Body.String())
			} else {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestJSONErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		hasCause bool
	}{
		{"http error", response.ErrForbidden, http.StatusForbidden, "forbidden", false},
		{"wrapped http error", fmt.Errorf("outer: %w", response.ErrNotFound.WithMessage("order not found")), http.StatusNotFound, "not_found", false},
		{"status code error", statusErr{code: http.StatusConflict}, http.StatusConflict, "conflict", true},
		{"plain error hides cause", errors.New("db exploded"), http.StatusInternalServerError, "internal_server_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := do(t, newRouter(func(ctx *router.Context) handler.Response {
				return response.Error(tt.err)
			}))

			assert.Equal(t, tt.status, w.Code)
			var body struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			_, hasCause := body.Details["cause"]
			assert.Equal(t, tt.hasCause, hasCause)
		})
	}
}

func TestHTTPErrorWithErrorDoesNotMutateShared(t *testing.T) {
	t.Parallel()

	base := response.ErrBadRequest.WithDetails(map[string]any{"field": "qty"})
	withCause := base.WithError(errors.New("must be positive"))

	assert.Equal(t, "must be positive", withCause.Details["cause"])
	assert.NotContains(t, base.Details, "cause")
	assert.Equal(t, "qty", withCause.Details["field"])
}

func TestNoContentAndStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNoContent, do(t, newRouter(func(ctx *router.Context) handler.Response {
		return response.NoContent()
	})).Code)
	assert.Equal(t, http.StatusAccepted, do(t, newRouter(func(ctx *router.Context) handler.Response {
		return response.Status(http.StatusAccepted)
	})).Code)
}
