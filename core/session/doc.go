// Package session implements server-side sessions keyed by opaque tokens.
//
// A session is created on login for exactly one subject and carries
// application data (for servicehub, the identity kind). Every authenticated
// request touches the session, which slides its expiry forward by the TTL;
// writes are throttled by the touch interval.
//
//	mgr := session.NewManager[identity.SessionData](store,
//		session.WithTTL(7*24*time.Hour),
//		session.WithTouchInterval(time.Minute),
//	)
//	sess, err := mgr.Create(ctx, accountID, identity.SessionData{Kind: identity.KindCustomer}, meta)
//	sess, err = mgr.GetByToken(ctx, token) // ErrNotFound or ErrExpired
//	sess, err = mgr.Touch(ctx, sess)
//
// Store implementations live in subpackages: redisstore for deployments with
// several processes, mongostore when MongoDB is the only shared dependency.
// MemoryStore serves a single process.
package session
