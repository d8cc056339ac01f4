// Package mongo provides MongoDB client initialization and health checking.
//
// New connects with the official v2 driver, retrying PING until the
// deployment answers. This covers Atlas cold starts and brief network
// failures during startup.
//
//	var cfg mongo.Config
//	if err := env.Parse(&cfg); err != nil {
//		log.Fatal(err)
//	}
//	db, err := mongo.NewWithDatabase(ctx, cfg, cfg.Database)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Environment:
//
//	MONGODB_URL                 (default: mongodb://localhost:27017)
//	MONGODB_DATABASE            (default: shivalik_service_hub)
//	MONGODB_CONNECT_TIMEOUT     (default: 10s)
//	MONGODB_MAX_POOL_SIZE       (default: 100)
//	MONGODB_MIN_POOL_SIZE       (default: 1)
//	MONGODB_MAX_CONN_IDLE_TIME  (default: 300s)
//	MONGODB_RETRY_WRITES        (default: true)
//	MONGODB_RETRY_READS         (default: true)
//	MONGODB_RETRY_ATTEMPTS      (default: 3)
//	MONGODB_RETRY_INTERVAL      (default: 5s)
//
// Checkout relies on multi-document transactions, so production deployments
// must run as a replica set.
package mongo
