package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// Store holds dashboard session tokens in memory with an absolute expiry.
// A periodic sweep reclaims expired entries; reads also expire lazily so a
// stalled sweeper cannot extend a session. Single-instance only — a
// multi-instance deployment would need to move this to a shared store.
type Store struct {
	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store with the given lifetime per token.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]time.Time),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
}

// Start launches the background sweep. Stop ends it.
func (s *Store) Start(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweep.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Create mints a new session token.
func (s *Store) Create() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = time.Now().Add(s.ttl)
	return token
}

// Validate reports whether the token names a live session.
func (s *Store) Validate(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Destroy removes a session.
func (s *Store) Destroy(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, expiry := range s.sessions {
		if now.After(expiry) {
			delete(s.sessions, token)
		}
	}
}
