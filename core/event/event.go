package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope carried by a Bus.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEvent wraps payload in an envelope. The name is the payload's type name.
//
//	evt := event.NewEvent(OrderCaptured{OrderID: id})
//	// evt.Name == "OrderCaptured"
func NewEvent(payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      getEventName(payload),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// wireEvent is Event as decoded from the bus, with the payload left raw
// until the handler knows its type.
type wireEvent struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func (w wireEvent) event() Event {
	return Event{ID: w.ID, Name: w.Name, Payload: []byte(w.Payload), CreatedAt: w.CreatedAt}
}
