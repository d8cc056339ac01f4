// Package health provides liveness and readiness handlers.
//
//	r.Get("/health", health.Liveness[*httpapi.Context])
//	r.Get("/health/ready", health.Readiness[*httpapi.Context](log,
//		mongo.Healthcheck(client),
//		redis.Healthcheck(rdb),
//	))
package health
