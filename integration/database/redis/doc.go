// Package redis provides Redis client initialization and health checking.
//
// Connect validates the connection URL, retries with exponential backoff
// until the server answers PING and returns a ready go-redis client.
//
//	var cfg redis.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// servicehub uses the client for the session store and the cross-process
// event bus. Healthcheck plugs into the readiness probe:
//
//	health.Readiness(log, redis.Healthcheck(client))
//
// Supported URL schemes are redis:// and rediss:// (TLS).
package redis
