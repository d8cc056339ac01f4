// Package realtime pushes domain events to websocket clients.
//
// Each process keeps a Hub of the connections it accepted. A connection is
// keyed by its principal and joins the public group; admin connections also
// join the admin group. Order events reach the owning customer and all
// admins, cart events the owner only, and product changes everyone.
//
// Events arrive through core/event: with the Redis bus every process sees
// every event and delivers to its local connections.
//
//	hub := realtime.NewHub(log)
//	proc := event.NewProcessor(
//		event.WithEventSource(bus),
//		event.WithHandler(realtime.EventHandlers(hub)...),
//	)
//	r.Get("/ws", realtime.Endpoint[*router.Context](realtime.NewHandler(hub, resolver, transport, cfg, log)))
package realtime
