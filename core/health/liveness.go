package health

import (
	"time"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
)

// Status is the body served by the health endpoints.
type Status struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Liveness always answers 200 with the current time while the process can serve requests.
func Liveness[C handler.Context](C) handler.Response {
	return response.JSON(Status{
		Status:    "ok",
		Message:   "Server is running",
		Timestamp: time.Now().UTC(),
	})
}
