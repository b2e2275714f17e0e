package drafts

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"sharepath/internal/models"
)

type memoryEntry struct {
	draft     models.TripDraft
	expiresAt time.Time
}

// MemoryStore manages drafts in process memory
type MemoryStore struct {
	drafts map[string]*memoryEntry
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
}

// NewMemoryStore creates a store whose drafts expire ttl after their last
// write. A ttl of zero keeps drafts forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string]*memoryEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, draft *models.TripDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if _, exists := s.drafts[draft.ID]; exists {
		return fmt.Errorf("draft %s already exists", draft.ID)
	}
	s.drafts[draft.ID] = &memoryEntry{draft: draft.Clone(), expiresAt: s.expiry()}
	log.Printf("[DRAFTS] Created draft: id=%s activities=%d", draft.ID, len(draft.Activities))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.TripDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.drafts[id]
	if !ok || s.expired(entry) {
		return nil, ErrNotFound
	}
	out := entry.draft.Clone()
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*models.TripDraft) error) (*models.TripDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok || s.expired(entry) {
		return nil, ErrNotFound
	}

	working := entry.draft.Clone()
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.ID = id

	entry.draft = working.Clone()
	entry.expiresAt = s.expiry()
	return &working, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.drafts, id)
	if s.expired(entry) {
		return ErrNotFound
	}
	log.Printf("[DRAFTS] Deleted draft: id=%s", id)
	return nil
}

// Len returns the number of live drafts
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, entry := range s.drafts {
		if !s.expired(entry) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(s.ttl)
}

func (s *MemoryStore) expired(entry *memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}

// sweepLocked drops expired drafts. Caller must hold the write lock.
func (s *MemoryStore) sweepLocked() {
	for id, entry := range s.drafts {
		if s.expired(entry) {
			delete(s.drafts, id)
		}
	}
}
