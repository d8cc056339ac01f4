package event

import "context"

// Bus moves encoded events between publishers and processors.
// A bus shared by several processes (see redisbus) delivers every event to
// every subscribed process.
type Bus interface {
	Publish(ctx context.Context, data []byte) error
	Events() <-chan []byte
	Close() error
}
