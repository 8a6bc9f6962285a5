// Package local is an in-process key/value store with expiry.
package local

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

type Config struct {
	GCInterval time.Duration
}

type entry struct {
	data     string
	expireAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// Store holds string values in memory. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	items  map[string]entry
	now    func() time.Time
	stopGC chan struct{}
	once   sync.Once
}

// NewCache creates a Store and starts its expiry sweeper.
func NewCache(cfg Config) (*Store, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := &Store{
		items:  make(map[string]entry),
		now:    time.Now,
		stopGC: make(chan struct{}),
	}
	go s.sweep(interval)
	return s, nil
}

// Close stops the sweeper. Calling it twice is safe.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stopGC) })
}

func (s *Store) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			now := s.now()
			for k, e := range s.items {
				if e.expired(now) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		case <-s.stopGC:
			return
		}
	}
}

// load returns a live entry; the caller holds s.mu.
func (s *Store) load(key string) (entry, bool) {
	e, ok := s.items[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.now()) {
		delete(s.items, key)
		return entry{}, false
	}
	return e, true
}

func (s *Store) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.load(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	s.items[key] = entry{data: value, expireAt: s.deadline(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.load(key)
	return ok, nil
}

// SetNX stores value only when key is absent and reports whether it did.
func (s *Store) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.load(key); ok {
		return false, nil
	}
	s.items[key] = entry{data: value, expireAt: s.deadline(ttl)}
	return true, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.load(key)
	if !ok {
		return ErrNotFound
	}
	e.expireAt = s.deadline(ttl)
	s.items[key] = e
	return nil
}
