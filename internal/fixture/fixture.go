// Package fixture provides the sample retrieval attempts used to seed a store.
package fixture

import (
	_ "embed"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/retrieval-cli/internal/model"
)

//go:embed attempts.yaml
var attemptsYAML []byte

type auditDoc struct {
	ID        string           `yaml:"id"`
	Field     model.AuditField `yaml:"field"`
	From      *string          `yaml:"from"`
	To        *string          `yaml:"to"`
	User      string           `yaml:"user"`
	Reason    string           `yaml:"reason"`
	Timestamp time.Time        `yaml:"timestamp"`
}

type attemptDoc struct {
	model.RetrievalAttempt `yaml:",inline"`
	DaysAgo                int        `yaml:"last_action_days_ago"`
	Audit                  []auditDoc `yaml:"audit"`
}

type document struct {
	Attempts []attemptDoc `yaml:"attempts"`
}

// Load returns the sample attempts with last action times resolved against now.
func Load(now time.Time) ([]model.RetrievalAttempt, error) {
	return Parse(attemptsYAML, now)
}

// Parse decodes a fixture document.
func Parse(data []byte, now time.Time) ([]model.RetrievalAttempt, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "fixture: decode yaml")
	}

	out := make([]model.RetrievalAttempt, 0, len(doc.Attempts))
	for _, d := range doc.Attempts {
		a := d.RetrievalAttempt
		if a.ID == "" {
			return nil, eris.New("fixture: attempt without id")
		}
		if !a.Status.Valid() {
			return nil, eris.Errorf("fixture: attempt %s has unknown status %q", a.ID, a.Status)
		}
		if a.Version == 0 {
			a.Version = 1
		}
		a.LastActionAt = now.UTC().AddDate(0, 0, -d.DaysAgo)
		for _, e := range d.Audit {
			a.Audit = append(a.Audit, model.AuditEntry{
				ID:        e.ID,
				AttemptID: a.ID,
				Field:     e.Field,
				From:      e.From,
				To:        e.To,
				User:      e.User,
				Reason:    e.Reason,
				Timestamp: e.Timestamp.UTC(),
			})
		}
		out = append(out, a)
	}
	return out, nil
}
