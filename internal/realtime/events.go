package realtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/event"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/order"
)

type owned interface {
	Owner() uuid.UUID
}

// EventHandlers routes domain events to the connections of this process.
// Every process consumes every event, so no sticky routing is needed.
func EventHandlers(hub *Hub) []event.Handler {
	return []event.Handler{
		ownerAndAdmins[order.OrderCreated](hub, "OrderCreated"),
		ownerAndAdmins[order.OrderAuthorized](hub, "OrderAuthorized"),
		ownerAndAdmins[order.OrderCaptured](hub, "OrderCaptured"),
		ownerAndAdmins[order.OrderFailed](hub, "OrderFailed"),
		ownerAndAdmins[order.OrderRefunded](hub, "OrderRefunded"),
		event.NewHandlerFunc(func(_ context.Context, evt cart.CartUpdated) error {
			hub.DeliverToCustomer(evt.CustomerID, Message{Event: "CartUpdated", Data: evt})
			return nil
		}),
		event.NewHandlerFunc(func(_ context.Context, evt catalog.ProductChanged) error {
			hub.Broadcast(GroupPublic, Message{Event: "ProductChanged", Data: evt})
			return nil
		}),
	}
}

func ownerAndAdmins[T owned](hub *Hub, name string) event.Handler {
	return event.NewHandler(name, func(_ context.Context, evt T) error {
		hub.Deliver(evt.Owner(), Message{Event: name, Data: evt})
		return nil
	})
}
