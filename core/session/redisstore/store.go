// Package redisstore keeps sessions in Redis so that every server process
// shares one view of logins.
//
// Each session is stored under two keys with the same TTL: the JSON
// document keyed by token and a pointer from ID to token. Redis expires
// both on its own, so DeleteExpired is a no-op.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

const defaultPrefix = "session:"

// Store is a session.Store backed by Redis.
type Store[Data any] struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*config)

type config struct {
	prefix string
	now    func() time.Time
}

// WithPrefix sets the key namespace. Default is "session:".
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithClock overrides time.Now used to compute key TTLs.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Redis session store.
func New[Data any](client redis.UniversalClient, opts ...Option) *Store[Data] {
	c := &config{prefix: defaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return &Store[Data]{client: client, prefix: c.prefix, now: c.now}
}

func (s *Store[Data]) tokenKey(token string) string { return s.prefix + "token:" + token }
func (s *Store[Data]) idKey(id uuid.UUID) string    { return s.prefix + "id:" + id.String() }

func (s *Store[Data]) GetByToken(ctx context.Context, token string) (*session.Session[Data], error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("redis get session: %w", err))
	}

	var sess session.Session[Data]
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *Store[Data]) GetByID(ctx context.Context, id uuid.UUID) (*session.Session[Data], error) {
	token, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("redis get session id: %w", err))
	}
	return s.GetByToken(ctx, token)
}

func (s *Store[Data]) Save(ctx context.Context, sess *session.Session[Data]) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	prevToken, err := s.client.Get(ctx, s.idKey(sess.ID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return retry.Transient(fmt.Errorf("redis get session id: %w", err))
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prevToken != "" && prevToken != sess.Token {
			pipe.Del(ctx, s.tokenKey(prevToken))
		}
		pipe.Set(ctx, s.tokenKey(sess.Token), raw, ttl)
		pipe.Set(ctx, s.idKey(sess.ID), sess.Token, ttl)
		return nil
	})
	if err != nil {
		return retry.Transient(fmt.Errorf("redis save session: %w", err))
	}
	return nil
}

// Update rewrites a session only while its id key exists. The id key is
// watched, so a Delete that lands between the check and the write aborts it.
func (s *Store[Data]) Update(ctx context.Context, sess *session.Session[Data]) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}

	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	idKey := s.idKey(sess.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		prevToken, err := tx.Get(ctx, idKey).Result()
		if errors.Is(err, redis.Nil) {
			return session.ErrNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if prevToken != sess.Token {
				pipe.Del(ctx, s.tokenKey(prevToken))
			}
			pipe.Set(ctx, s.tokenKey(sess.Token), raw, ttl)
			pipe.Set(ctx, idKey, sess.Token, ttl)
			return nil
		})
		return err
	}, idKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotFound):
		return err
	case errors.Is(err, redis.TxFailedErr):
		// The id key changed under us: either deleted or touched by another request.
		n, existsErr := s.client.Exists(ctx, idKey).Result()
		if existsErr != nil {
			return retry.Transient(fmt.Errorf("redis check session: %w", existsErr))
		}
		if n == 0 {
			return session.ErrNotFound
		}
		return nil
	default:
		return retry.Transient(fmt.Errorf("redis update session: %w", err))
	}
}

func (s *Store[Data]) Delete(ctx context.Context, id uuid.UUID) error {
	token, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return session.ErrNotFound
	}
	if err != nil {
		return retry.Transient(fmt.Errorf("redis get session id: %w", err))
	}

	if err := s.client.Del(ctx, s.idKey(id), s.tokenKey(token)).Err(); err != nil {
		return retry.Transient(fmt.Errorf("redis delete session: %w", err))
	}
	return nil
}

// DeleteExpired returns 0: Redis evicts expired keys itself.
func (s *Store[Data]) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}
