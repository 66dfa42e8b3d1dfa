// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Factory builds the Orchestrator for a new session.
type Factory func() *Orchestrator

// Store keeps one Orchestrator per browser session in memory. Sessions idle
// for longer than the TTL are dropped on the next Create.
type Store struct {
	newOrchestrator Factory
	ttl             time.Duration
	now             func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// NewStore returns an empty Store.
func NewStore(factory Factory, ttl time.Duration) *Store {
	return &Store{
		newOrchestrator: factory,
		ttl:             ttl,
		now:             time.Now,
		sessions:        make(map[string]*entry),
	}
}

// Get returns the session with id and marks it as seen.
func (s *Store) Get(id string) (*Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.orch, true
}

// Create starts a new session and returns its id.
func (s *Store) Create() (string, *Orchestrator) {
	id := uuid.NewString()
	orch := s.newOrchestrator()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.sessions[id] = &entry{orch: orch, lastSeen: s.now()}
	return id, orch
}

// Delete removes the session with id.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) sweepLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
