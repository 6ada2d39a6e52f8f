// Package audit synthesizes the change records written alongside every
// attempt mutation.
package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// Stamp identifies who made a change and when.
type Stamp struct {
	User      string
	Timestamp time.Time
}

// IDFunc generates audit entry ids.
type IDFunc func() string

// Synthesizer diffs an attempt against proposed values and produces the audit
// entries for every effective change.
type Synthesizer struct {
	newID IDFunc
}

// NewSynthesizer creates a Synthesizer. A nil newID uses random UUIDs.
func NewSynthesizer(newID IDFunc) *Synthesizer {
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	return &Synthesizer{newID: newID}
}

// scalar describes one editable field: the stored value, the proposed value,
// and whether an empty value is recorded as null.
type scalar struct {
	field    model.AuditField
	current  string
	proposed string
	optional bool
}

func scalars(a model.RetrievalAttempt, phone, fax, email, contactName, chaseAddress string) []scalar {
	return []scalar{
		{model.AuditFieldPhone, a.Phone, phone, true},
		{model.AuditFieldFax, a.Fax, fax, true},
		{model.AuditFieldEmail, a.Email, email, true},
		{model.AuditFieldContactName, a.ContactName, contactName, true},
		{model.AuditFieldChaseAddress, a.ChaseAddress, chaseAddress, false},
	}
}

func (s scalar) value(v string) *string {
	if s.optional {
		return model.StrPtr(v)
	}
	return &v
}

func (syn *Synthesizer) entry(a model.RetrievalAttempt, field model.AuditField, from, to *string, reason string, st Stamp) model.AuditEntry {
	return model.AuditEntry{
		ID:        syn.newID(),
		AttemptID: a.ID,
		Field:     field,
		From:      from,
		To:        to,
		User:      st.User,
		Reason:    reason,
		Timestamp: st.Timestamp,
	}
}

// statusEntry appends the status change entry when outcome moves the attempt
// to a different status. No entry is produced for an empty outcome.
func (syn *Synthesizer) statusEntry(a model.RetrievalAttempt, outcome model.Outcome, reason string, st Stamp, out []model.AuditEntry) []model.AuditEntry {
	if outcome == model.OutcomeNone {
		return out
	}
	next := model.StatusFromOutcome(outcome)
	if next == a.Status {
		return out
	}
	from, to := string(a.Status), string(next)
	return append(out, syn.entry(a, model.AuditFieldStatus, &from, &to,
		model.OutcomeAuditMessage(outcome, reason), st))
}

// Diff returns the entries for a single-attempt edit. Every scalar field is
// compared, with absent and empty treated as equal.
func (syn *Synthesizer) Diff(a model.RetrievalAttempt, f model.EditForm, st Stamp) []model.AuditEntry {
	var out []model.AuditEntry
	for _, s := range scalars(a, f.Phone, f.Fax, f.Email, f.ContactName, f.ChaseAddress) {
		if s.proposed == s.current {
			continue
		}
		out = append(out, syn.entry(a, s.field, s.value(s.current), s.value(s.proposed), "", st))
	}
	return syn.statusEntry(a, f.Outcome, f.Reason, st, out)
}

// DiffBulk returns the entries a bulk edit produces for one attempt. Blank
// fields are skipped and every entry carries the bulk reason.
func (syn *Synthesizer) DiffBulk(a model.RetrievalAttempt, f model.BulkEditForm, st Stamp) []model.AuditEntry {
	var out []model.AuditEntry
	for _, s := range scalars(a, f.Phone, f.Fax, f.Email, f.ContactName, f.ChaseAddress) {
		if strings.TrimSpace(s.proposed) == "" || s.proposed == s.current {
			continue
		}
		out = append(out, syn.entry(a, s.field, s.value(s.current), s.value(s.proposed), f.Reason, st))
	}
	return syn.statusEntry(a, f.Outcome, f.Reason, st, out)
}
