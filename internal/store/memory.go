package store

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// MemoryStore implements Store in process memory. Reads return copies.
type MemoryStore struct {
	mu       sync.RWMutex
	attempts map[string]model.RetrievalAttempt
	audit    map[string][]model.AuditEntry
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		attempts: make(map[string]model.RetrievalAttempt),
		audit:    make(map[string][]model.AuditEntry),
	}
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetAttempt(_ context.Context, id string) (*model.RetrievalAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attempts[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "memory: get attempt %s", id)
	}
	a.Audit = append([]model.AuditEntry(nil), s.audit[id]...)
	return &a, nil
}

func (s *MemoryStore) ListAttempts(_ context.Context, filter AttemptFilter) ([]model.RetrievalAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RetrievalAttempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		if !hasStatus(filter.Statuses, a.Status) || !hasID(filter.IDs, a.ID) {
			continue
		}
		a.Audit = nil
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActionAt.Equal(out[j].LastActionAt) {
			return out[i].LastActionAt.After(out[j].LastActionAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateAttempt(_ context.Context, a model.RetrievalAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(a)
}

func (s *MemoryStore) ImportAttempts(_ context.Context, attempts []model.RetrievalAttempt) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(attempts))
	for _, a := range attempts {
		_, stored := s.attempts[a.ID]
		_, dup := seen[a.ID]
		if stored || dup {
			return 0, eris.Wrapf(ErrDuplicate, "memory: import attempt %s", a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	for _, a := range attempts {
		if err := s.insertLocked(a); err != nil {
			return 0, err
		}
	}
	return len(attempts), nil
}

func (s *MemoryStore) insertLocked(a model.RetrievalAttempt) error {
	if _, ok := s.attempts[a.ID]; ok {
		return eris.Wrapf(ErrDuplicate, "memory: create attempt %s", a.ID)
	}
	entries := a.Audit
	a.Audit = nil
	s.attempts[a.ID] = a
	if len(entries) > 0 {
		s.audit[a.ID] = append([]model.AuditEntry(nil), entries...)
	}
	return nil
}

func (s *MemoryStore) Commit(_ context.Context, updates ...Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkBatch(updates); err != nil {
		return err
	}
	for _, u := range updates {
		cur, ok := s.attempts[u.Attempt.ID]
		if !ok {
			return eris.Wrapf(ErrNotFound, "memory: commit attempt %s", u.Attempt.ID)
		}
		if cur.Version != u.BaseVersion {
			return eris.Wrapf(ErrVersionConflict, "memory: commit attempt %s at version %d, stored %d",
				u.Attempt.ID, u.BaseVersion, cur.Version)
		}
	}

	for _, u := range updates {
		a := u.Attempt
		a.Audit = nil
		s.attempts[a.ID] = a
		s.audit[a.ID] = append(s.audit[a.ID], u.Entries...)
	}
	return nil
}

func (s *MemoryStore) ListAudit(_ context.Context, attemptID string) ([]model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.attempts[attemptID]; !ok {
		return nil, eris.Wrapf(ErrNotFound, "memory: list audit %s", attemptID)
	}
	return append([]model.AuditEntry(nil), s.audit[attemptID]...), nil
}
