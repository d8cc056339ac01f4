package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/internal/store"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidWebhookSecret = errors.New("invalid webhook secret")
	ErrInvalidDate          = errors.New("dates must be RFC3339 or YYYY-MM-DD")
	ErrInvalidState         = errors.New("invalid order state")
)

func httpError(status int, code string, err error) response.HTTPError {
	return response.HTTPError{Status: status, Code: code, Message: err.Error()}
}

// MapError translates domain errors into HTTP errors. Unknown errors become
// a 500 without leaking the cause.
func MapError(err error) response.HTTPError {
	var httpErr response.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var transition *order.InvalidTransitionError
	if errors.As(err, &transition) {
		return httpError(http.StatusConflict, "invalid_transition", err).WithDetails(map[string]any{
			"from":    transition.From,
			"to":      transition.To,
			"outcome": transition.Outcome,
		})
	}

	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		return httpError(http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, account.ErrInvalidCredentials):
		return httpError(http.StatusUnauthorized, "invalid_credentials", err)
	case errors.Is(err, identity.ErrForbidden), errors.Is(err, ErrInvalidWebhookSecret):
		return httpError(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, order.ErrOutcomeNotAllowed):
		return httpError(http.StatusForbidden, "outcome_not_allowed", err)

	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, order.ErrNotFound), errors.Is(err, account.ErrNotFound):
		return response.ErrNotFound.WithError(err)
	case errors.Is(err, router.ErrNotFound):
		return response.ErrNotFound
	case errors.Is(err, router.ErrMethodNotAllowed):
		return response.ErrMethodNotAllowed

	case errors.Is(err, order.ErrEmptyCart):
		return httpError(http.StatusConflict, "empty_cart", err)
	case errors.Is(err, account.ErrEmailTaken):
		return httpError(http.StatusConflict, "email_taken", err)
	case errors.Is(err, catalog.ErrProductInactive):
		return httpError(http.StatusConflict, "product_unavailable", err)
	case errors.Is(err, cart.ErrContended), errors.Is(err, order.ErrContended), errors.Is(err, store.ErrConflict):
		return httpError(http.StatusConflict, "conflict", err)

	case errors.Is(err, account.ErrInvalidEmail),
		errors.Is(err, account.ErrWeakPassword),
		errors.Is(err, account.ErrNameRequired),
		errors.Is(err, catalog.ErrNameRequired),
		errors.Is(err, catalog.ErrNameTooLong),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidOutcome):
		return httpError(http.StatusUnprocessableEntity, "validation_failed", err)

	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return response.ErrUnsupportedMediaType.WithError(err)
	case errors.Is(err, binder.ErrFailedToParseJSON),
		errors.Is(err, binder.ErrFailedToParseQuery),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidState),
		errors.Is(err, stats.ErrInvalidRange):
		return httpError(http.StatusBadRequest, "bad_request", err)

	case retry.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return response.ErrServiceUnavailable
	}

	return response.AsHTTPError(err)
}

// ErrorHandler renders MapError as JSON and logs server-side failures.
func ErrorHandler[C handler.Context](log *slog.Logger) handler.ErrorHandler[C] {
	return func(ctx C, err error) {
		httpErr := MapError(err)
		if httpErr.Status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "request failed",
				logger.Method(ctx.Request().Method),
				logger.Path(ctx.Request().URL.Path),
				logger.Error(err))
		}
		response.JSONErrorHandler(ctx, httpErr)
	}
}
