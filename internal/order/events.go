package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Change is the body shared by every order event.
type Change struct {
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	State      State           `json:"state"`
	Total      decimal.Decimal `json:"total"`
	Reference  string          `json:"reference,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Owner is the customer whose connections receive the event.
func (c Change) Owner() uuid.UUID { return c.CustomerID }

type (
	OrderCreated struct {
		Change
		ItemCount int `json:"item_count"`
	}
	OrderAuthorized struct{ Change }
	OrderCaptured   struct{ Change }
	OrderFailed     struct{ Change }
	OrderRefunded   struct{ Change }
)

func changeOf(o Order, reference string) Change {
	return Change{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		State:      o.State,
		Total:      o.Total,
		Reference:  reference,
		Timestamp:  o.UpdatedAt,
	}
}

// transitionEvent returns the event for an order that just entered its state.
func transitionEvent(o Order, reference string) any {
	c := changeOf(o, reference)
	switch o.State {
	case StateAuthorized:
		return OrderAuthorized{c}
	case StateCaptured:
		return OrderCaptured{c}
	case StateFailed:
		return OrderFailed{c}
	case StateRefunded:
		return OrderRefunded{c}
	}
	return nil
}
