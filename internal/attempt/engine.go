// Package attempt applies single and bulk edits to retrieval attempts.
//
// Every edit is validated, checked against the status state machine, turned
// into audit entries and committed through the store with the version it was
// computed from. Failures leave stored attempts untouched.
package attempt

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/retrieval-cli/internal/audit"
	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/validate"
)

// DefaultUser is recorded on audit entries when no user is configured.
const DefaultUser = "current_user"

const defaultBulkConcurrency = 8

// Engine is the attempt mutation engine.
type Engine struct {
	store     store.Store
	validator *validate.Validator
	synth     *audit.Synthesizer
	user      string
	now       func() time.Time

	bulkConcurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithUser sets the user recorded on audit entries.
func WithUser(user string) Option {
	return func(e *Engine) {
		if user != "" {
			e.user = user
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithValidator replaces the default validator.
func WithValidator(v *validate.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithSynthesizer replaces the default audit synthesizer.
func WithSynthesizer(s *audit.Synthesizer) Option {
	return func(e *Engine) { e.synth = s }
}

// WithBulkConcurrency caps concurrent loads during a bulk edit.
func WithBulkConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bulkConcurrency = n
		}
	}
}

// NewEngine creates an Engine over st.
func NewEngine(st store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           st,
		validator:       validate.New(),
		synth:           audit.NewSynthesizer(nil),
		user:            DefaultUser,
		now:             time.Now,
		bulkConcurrency: defaultBulkConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplySingleEdit applies form to one attempt. The five contact fields are
// replaced verbatim, so an empty optional field clears the stored value.
func (e *Engine) ApplySingleEdit(ctx context.Context, id string, form model.EditForm) (_ *model.RetrievalAttempt, err error) {
	start := time.Now()
	defer func() { observe(opSingle, start, err) }()

	log := zap.L().With(zap.String("attempt_id", id))

	cur, err := e.store.GetAttempt(ctx, id)
	if err != nil {
		return nil, e.fail(log, wrapErr(id, eris.Wrap(err, "attempt: load")))
	}

	if fields := e.validator.Edit(form); !fields.Valid() {
		return nil, e.fail(log, &Error{Kind: KindValidationFailed, AttemptID: id, Fields: fields})
	}

	target := model.StatusFromOutcome(form.Outcome)
	if !model.IsValidTransition(cur.Status, target) {
		return nil, e.fail(log, invalidTransition(id, cur.Status, target))
	}

	stamp := audit.Stamp{User: e.user, Timestamp: e.now().UTC()}
	entries := e.synth.Diff(*cur, form, stamp)

	next := cur.Clone()
	next.Phone = form.Phone
	next.Fax = form.Fax
	next.Email = form.Email
	next.ContactName = form.ContactName
	next.ChaseAddress = form.ChaseAddress
	next.Status = target
	next.LastActionAt = stamp.Timestamp
	next.Version = cur.Version + 1

	if err := e.commit(ctx, store.Update{Attempt: withoutAudit(next), BaseVersion: cur.Version, Entries: entries}); err != nil {
		return nil, e.fail(log, wrapErr(id, err))
	}

	next.Audit = append(next.Audit, entries...)
	countEntries(entries)
	log.Info("attempt: edit applied",
		zap.Int("version", next.Version),
		zap.String("status", string(next.Status)),
		zap.Int("audit_entries", len(entries)),
	)
	return &next, nil
}

// ApplyBulkEdit applies form to every attempt in ids as one batch. Blank
// fields are left untouched on every attempt. Every selected attempt gets a
// new version and last action time; nothing is written unless every attempt
// can be updated.
func (e *Engine) ApplyBulkEdit(ctx context.Context, ids []string, form model.BulkEditForm) (_ []model.RetrievalAttempt, err error) {
	start := time.Now()
	defer func() { observe(opBulk, start, err) }()

	ids = dedupe(ids)
	log := zap.L().With(zap.Int("attempts", len(ids)))
	if len(ids) == 0 {
		return nil, e.fail(log, &Error{
			Kind:   KindValidationFailed,
			Fields: validate.FieldErrors{validate.FieldIDs: validate.MsgNoSelection},
		})
	}
	bulkBatchSize.Observe(float64(len(ids)))

	if fields := e.validator.Bulk(form); !fields.Valid() {
		return nil, e.fail(log, &Error{Kind: KindValidationFailed, Fields: fields})
	}

	current, err := e.loadAll(ctx, ids)
	if err != nil {
		return nil, e.fail(log, wrapErr("", err))
	}

	stamp := audit.Stamp{User: e.user, Timestamp: e.now().UTC()}
	updates := make([]store.Update, 0, len(current))
	results := make([]model.RetrievalAttempt, 0, len(current))
	for _, cur := range current {
		target := cur.Status
		if form.Outcome != model.OutcomeNone {
			target = model.StatusFromOutcome(form.Outcome)
		}
		if !model.IsValidTransition(cur.Status, target) {
			return nil, e.fail(log, invalidTransition(cur.ID, cur.Status, target))
		}

		entries := e.synth.DiffBulk(cur, form, stamp)
		next := applyBulkFields(cur.Clone(), form)
		next.Status = target
		next.LastActionAt = stamp.Timestamp
		next.Version = cur.Version + 1

		updates = append(updates, store.Update{Attempt: withoutAudit(next), BaseVersion: cur.Version, Entries: entries})
		next.Audit = append(next.Audit, entries...)
		results = append(results, next)
	}

	if err := e.commit(ctx, updates...); err != nil {
		return nil, e.fail(log, wrapErr("", err))
	}

	for _, u := range updates {
		countEntries(u.Entries)
	}
	log.Info("attempt: bulk edit applied", zap.Strings("ids", ids), zap.String("outcome", string(form.Outcome)))
	return results, nil
}

// loadAll fetches every attempt concurrently, preserving the order of ids.
func (e *Engine) loadAll(ctx context.Context, ids []string) ([]model.RetrievalAttempt, error) {
	out := make([]model.RetrievalAttempt, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			a, err := e.store.GetAttempt(gctx, id)
			if err != nil {
				return wrapErr(id, eris.Wrap(err, "attempt: load"))
			}
			out[i] = *a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// commit detaches from caller cancellation: once the write starts it runs to
// completion.
func (e *Engine) commit(ctx context.Context, updates ...store.Update) error {
	return eris.Wrap(e.store.Commit(context.WithoutCancel(ctx), updates...), "attempt: commit")
}

func (e *Engine) fail(log *zap.Logger, err *Error) error {
	fields := []zap.Field{zap.String("kind", err.Kind.String()), zap.Error(err)}
	switch err.Kind {
	case KindInvalidTransition, KindUnknown:
		log.Error("attempt: edit failed", fields...)
	case KindTransientFailure:
		log.Warn("attempt: edit failed", fields...)
	default:
		log.Debug("attempt: edit rejected", fields...)
	}
	return err
}

func invalidTransition(id string, from, to model.Status) *Error {
	return &Error{
		Kind:      KindInvalidTransition,
		AttemptID: id,
		Err:       eris.Errorf("attempt: status %s cannot move to %s", from, to),
	}
}

func applyBulkFields(a model.RetrievalAttempt, f model.BulkEditForm) model.RetrievalAttempt {
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&a.Phone, f.Phone)
	set(&a.Fax, f.Fax)
	set(&a.Email, f.Email)
	set(&a.ContactName, f.ContactName)
	set(&a.ChaseAddress, f.ChaseAddress)
	return a
}

func withoutAudit(a model.RetrievalAttempt) model.RetrievalAttempt {
	a.Audit = nil
	return a
}

func countEntries(entries []model.AuditEntry) {
	for _, en := range entries {
		auditEntriesTotal.WithLabelValues(string(en.Field)).Inc()
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
