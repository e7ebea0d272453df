// Package session keeps planning sessions in memory and issues the tokens
// clients use to address them.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/farmroute/farmroute/internal/planner"
)

// ErrNotFound indicates an unknown or expired session.
var ErrNotFound = errors.New("session not found")

// Session is one client's planning session.
type Session struct {
	ID        string
	CreatedAt time.Time
	Plan      *planner.Session

	mu       sync.Mutex // serializes access to Plan
	lastSeen time.Time
}

// StoreConfig holds configuration for the session store.
type StoreConfig struct {
	// IdleTTL is how long an untouched session lives (default: 30 minutes).
	IdleTTL time.Duration

	// SweepInterval is how often Run evicts idle sessions (default: 1 minute).
	SweepInterval time.Duration

	// Logger for store operations.
	Logger zerolog.Logger
}

// Store manages sessions in memory.
type Store struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	idleTTL       time.Duration
	sweepInterval time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewStore creates a session store.
func NewStore(cfg StoreConfig) *Store {
	idle := cfg.IdleTTL
	if idle == 0 {
		idle = 30 * time.Minute
	}
	sweep := cfg.SweepInterval
	if sweep == 0 {
		sweep = time.Minute
	}

	return &Store{
		sessions:      make(map[string]*Session),
		idleTTL:       idle,
		sweepInterval: sweep,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// Create registers a new session holding plan.
func (s *Store) Create(plan *planner.Session) *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		Plan:      plan,
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", sess.ID).Msg("session created")
	return sess
}

// Get returns the session with id, or ErrNotFound.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess := s.sessions[id]
	s.mu.RUnlock()

	if sess == nil {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Update runs fn on the session while holding its lock. Calls for different
// sessions run in parallel; calls for the same session are serialized.
func (s *Store) Update(id string, fn func(*Session) error) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := s.now()
	if now.Sub(sess.lastSeen) > s.idleTTL {
		s.Delete(id)
		return ErrNotFound
	}
	sess.lastSeen = now

	return fn(sess)
}

// Delete removes a session. Deleting an unknown session returns ErrNotFound.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	s.logger.Debug().Str("session_id", id).Msg("session deleted")
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle for longer than the idle TTL and returns how
// many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue // in use
		}
		idle := now.Sub(sess.lastSeen) > s.idleTTL
		sess.mu.Unlock()

		if idle {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Int("remaining", len(s.sessions)).Msg("idle sessions evicted")
	}
	return removed
}

// Run sweeps idle sessions until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
