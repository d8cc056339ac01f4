package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. It is only correct for a
// single server instance and is meant for development and tests.
type MemoryStore[Data any] struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]Session[Data]
	byToken map[string]uuid.UUID
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore[Data any]() *MemoryStore[Data] {
	return &MemoryStore[Data]{
		byID:    make(map[uuid.UUID]Session[Data]),
		byToken: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func (s *MemoryStore[Data]) GetByID(_ context.Context, id uuid.UUID) (*Session[Data], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemoryStore[Data]) GetByToken(ctx context.Context, token string) (*Session[Data], error) {
	s.mu.RLock()
	id, ok := s.byToken[token]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *MemoryStore[Data]) Save(_ context.Context, sess *Session[Data]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byID[sess.ID]; ok && prev.Token != sess.Token {
		delete(s.byToken, prev.Token)
	}
	s.byID[sess.ID] = *sess
	s.byToken[sess.Token] = sess.ID
	return nil
}

func (s *MemoryStore[Data]) Update(_ context.Context, sess *Session[Data]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[sess.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.Token != sess.Token {
		delete(s.byToken, prev.Token)
	}
	s.byID[sess.ID] = *sess
	s.byToken[sess.Token] = sess.ID
	return nil
}

func (s *MemoryStore[Data]) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byToken, sess.Token)
	return nil
}

func (s *MemoryStore[Data]) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for id, sess := range s.byID {
		if sess.IsExpired(now) {
			delete(s.byID, id)
			delete(s.byToken, sess.Token)
			n++
		}
	}
	return n, nil
}
