package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessionStore is the in-process SessionStore backend. Expiry is
// enforced lazily: expired entries are invisible to readers and reaped on
// access.
type MemorySessionStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*SessionRecord
	expiry   map[string]time.Time
	byUser   map[string]map[string]struct{}
}

// NewMemorySessionStore creates an in-process store. A zero ttl disables
// expiry.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:      ttl,
		sessions: make(map[string]*SessionRecord),
		expiry:   make(map[string]time.Time),
		byUser:   make(map[string]map[string]struct{}),
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, userID string, data map[string]any) (string, error) {
	sessionID := strings.ReplaceAll(uuid.New().String(), "-", "")
	rec := newSessionRecord(sessionID, userID, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = rec
	if s.ttl > 0 {
		s.expiry[sessionID] = time.Now().Add(s.ttl)
	}

	idx, ok := s.byUser[userID]
	if !ok {
		idx = make(map[string]struct{})
		s.byUser[userID] = idx
	}
	idx[sessionID] = struct{}{}

	return sessionID, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.liveLocked(sessionID)
	if rec == nil {
		return nil, nil
	}
	return rec.clone(), nil
}

func (s *MemorySessionStore) GetByUser(ctx context.Context, userID string) ([]*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*SessionRecord
	for sessionID := range s.byUser[userID] {
		if rec := s.liveLocked(sessionID); rec != nil {
			out = append(out, rec.clone())
		}
	}
	return out, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(sessionID)
	return nil
}

// DeleteByUser removes every session owned by a user. The core never calls
// this; it exists so embedders that delete users can cascade explicitly.
func (s *MemorySessionStore) DeleteByUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sessionID := range s.byUser[userID] {
		s.removeLocked(sessionID)
	}
	return nil
}

func (s *MemorySessionStore) Refresh(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.liveLocked(sessionID)
	if rec == nil {
		return nil
	}

	rec.UpdatedAt = time.Now().UTC()
	if s.ttl > 0 {
		s.expiry[sessionID] = time.Now().Add(s.ttl)
	}
	return nil
}

// liveLocked returns the record when present and unexpired, reaping it
// otherwise. Callers must hold the write lock.
func (s *MemorySessionStore) liveLocked(sessionID string) *SessionRecord {
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}

	if deadline, ok := s.expiry[sessionID]; ok && time.Now().After(deadline) {
		s.removeLocked(sessionID)
		return nil
	}

	return rec
}

func (s *MemorySessionStore) removeLocked(sessionID string) {
	rec, ok := s.sessions[sessionID]
	if !ok {
		return
	}

	delete(s.sessions, sessionID)
	delete(s.expiry, sessionID)

	if idx, ok := s.byUser[rec.UserID]; ok {
		delete(idx, sessionID)
		if len(idx) == 0 {
			delete(s.byUser, rec.UserID)
		}
	}
}

var _ SessionStore = (*MemorySessionStore)(nil)
