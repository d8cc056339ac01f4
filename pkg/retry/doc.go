// Package retry runs operations again after transient failures.
//
// Stores mark driver errors that are worth retrying with Transient; services
// wrap idempotent operations in Once so a single network blip does not fail
// the request:
//
//	err := retry.Once(ctx, func(ctx context.Context) error {
//		return repo.Save(ctx, cart)
//	})
//
// Do with a Policy is used for start-up connection loops.
package retry
