package response

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/servicehub/core/handler"
)

type statusCode interface {
	StatusCode() int
}

type writtenTracker interface {
	Written() bool
}

// AsHTTPError converts any error to an HTTPError. HTTPError values pass through,
// errors exposing StatusCode() map to the matching predefined error with the
// original attached as cause, everything else becomes a 500.
func AsHTTPError(err error) HTTPError {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	status := http.StatusInternalServerError
	var sc statusCode
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	base, ok := httpErrorsByStatus[status]
	if !ok {
		base = ErrInternalServerError
	}
	if status >= http.StatusInternalServerError {
		// Internal causes are not leaked to clients.
		return base
	}
	return base.WithError(err)
}

// ErrorHandler renders errors as plain text.
func ErrorHandler[C handler.Context](ctx C, err error) {
	if alreadyWritten(ctx) {
		return
	}
	httpErr := AsHTTPError(err)
	Render(ctx, StringWithStatus(httpErr.Error(), httpErr.Status))
}

// JSONErrorHandler renders errors as JSON HTTPError bodies.
func JSONErrorHandler[C handler.Context](ctx C, err error) {
	if alreadyWritten(ctx) {
		return
	}
	httpErr := AsHTTPError(err)
	Render(ctx, JSONWithStatus(httpErr, httpErr.Status))
}

func alreadyWritten(ctx handler.Context) bool {
	wt, ok := ctx.ResponseWriter().(writtenTracker)
	return ok && wt.Written()
}
