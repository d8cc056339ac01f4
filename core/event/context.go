package event

import (
	"context"
	"time"
)

type eventIDCtx struct{}
type eventNameCtx struct{}
type eventTimeCtx struct{}

// WithEventMeta stores the envelope's id, name and creation time in ctx.
func WithEventMeta(ctx context.Context, evt Event) context.Context {
	ctx = context.WithValue(ctx, eventIDCtx{}, evt.ID)
	ctx = context.WithValue(ctx, eventNameCtx{}, evt.Name)
	return context.WithValue(ctx, eventTimeCtx{}, evt.CreatedAt)
}

// EventID returns the id of the event being handled.
func EventID(ctx context.Context) string {
	id, _ := ctx.Value(eventIDCtx{}).(string)
	return id
}

// EventName returns the name of the event being handled.
func EventName(ctx context.Context) string {
	name, _ := ctx.Value(eventNameCtx{}).(string)
	return name
}

// EventTime returns when the event being handled was created.
func EventTime(ctx context.Context) time.Time {
	t, _ := ctx.Value(eventTimeCtx{}).(time.Time)
	return t
}
