package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AlexKimmel/LimitGate/internal/ratelimit"
)

type entry struct {
	count     int64
	expiresAt time.Time
}

// Store is an in-process fixed-window counter store. Windows start on the
// first increment of a fresh key and expire on their own; an expired key
// behaves exactly like a missing one.
type Store struct {
	now func() time.Time

	mu       sync.Mutex
	counters map[string]*entry
}

var _ ratelimit.CounterStore = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		counters: make(map[string]*entry),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Second
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.counters[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &entry{expiresAt: now.Add(window)}
		s.counters[key] = e
	}
	e.count++
	return e.count, e.expiresAt.Sub(now), nil
}

func (s *Store) Peek(_ context.Context, key string) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.counters[key]
	if !ok {
		return 0, 0, nil
	}
	if !now.Before(e.expiresAt) {
		delete(s.counters, key)
		return 0, 0, nil
	}
	return e.count, e.expiresAt.Sub(now), nil
}

func (s *Store) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}
