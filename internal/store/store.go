// Package store persists retrieval attempts and their audit trails.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/retrieval-cli/internal/model"
)

var (
	// ErrNotFound is returned when no attempt has the requested id.
	ErrNotFound = eris.New("attempt not found")
	// ErrVersionConflict is returned by Commit when an attempt's stored
	// version no longer matches the version the update was computed from.
	ErrVersionConflict = eris.New("attempt version conflict")
	// ErrDuplicate is returned when creating an attempt whose id exists.
	ErrDuplicate = eris.New("attempt already exists")
)

// AttemptFilter narrows ListAttempts. Zero values mean no constraint.
type AttemptFilter struct {
	Statuses []model.Status `json:"statuses,omitempty"`
	IDs      []string       `json:"ids,omitempty"`
	Limit    int            `json:"limit,omitempty"`
}

// Update replaces one attempt and appends its audit entries. BaseVersion is
// the stored version the new state was derived from.
type Update struct {
	Attempt     model.RetrievalAttempt
	BaseVersion int
	Entries     []model.AuditEntry
}

// Store defines the persistence interface for retrieval attempts.
type Store interface {
	// GetAttempt returns the attempt with its full audit trail.
	GetAttempt(ctx context.Context, id string) (*model.RetrievalAttempt, error)
	// ListAttempts returns attempts ordered by last action, newest first.
	// Audit trails are not loaded.
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]model.RetrievalAttempt, error)
	CreateAttempt(ctx context.Context, a model.RetrievalAttempt) error
	// ImportAttempts inserts many attempts at once and returns the count.
	ImportAttempts(ctx context.Context, attempts []model.RetrievalAttempt) (int, error)

	// Commit applies every update or none of them. Each update is checked
	// against its BaseVersion before anything is written.
	Commit(ctx context.Context, updates ...Update) error
	ListAudit(ctx context.Context, attemptID string) ([]model.AuditEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// checkBatch rejects malformed updates before any store work starts.
func checkBatch(updates []Update) error {
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		if u.Attempt.ID == "" {
			return eris.New("store: update has no attempt id")
		}
		if u.Attempt.Version != u.BaseVersion+1 {
			return eris.Errorf("store: attempt %s version %d does not follow base version %d",
				u.Attempt.ID, u.Attempt.Version, u.BaseVersion)
		}
		if _, dup := seen[u.Attempt.ID]; dup {
			return eris.Errorf("store: attempt %s updated twice in one commit", u.Attempt.ID)
		}
		seen[u.Attempt.ID] = struct{}{}
	}
	return nil
}

func hasStatus(statuses []model.Status, s model.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func hasID(ids []string, id string) bool {
	if len(ids) == 0 {
		return true
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func statusStrings(statuses []model.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
