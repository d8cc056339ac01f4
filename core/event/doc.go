// Package event provides typed domain events over a pluggable bus.
//
// A Publisher wraps a payload in an Event envelope named after the payload
// type and writes its JSON encoding to a Bus. A Processor reads the bus and
// calls the handlers registered for that name:
//
//	bus := event.NewChannelBus()
//	pub := event.NewPublisher(bus)
//
//	proc := event.NewProcessor(
//		event.WithEventSource(bus),
//		event.WithHandler(event.NewHandlerFunc(func(ctx context.Context, e OrderCaptured) error {
//			return notify(ctx, e)
//		})),
//	)
//	g.Go(proc.Run(ctx))
//
//	_ = pub.Publish(ctx, OrderCaptured{OrderID: id})
//
// Handler failures and panics are logged and counted; they never stop the
// processor. ChannelBus serves a single process. The redisbus subpackage
// fans every event out to all processes subscribed to a Redis channel.
package event
