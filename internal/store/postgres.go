package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/retrieval-cli/internal/db"
	"github.com/sells-group/retrieval-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS attempts (
	id               TEXT PRIMARY KEY,
	retrieval_method TEXT NOT NULL,
	client_name      TEXT NOT NULL,
	demand_id        TEXT NOT NULL,
	provider_name    TEXT NOT NULL,
	provider_npi     TEXT NOT NULL,
	provider_group   TEXT NOT NULL,
	start_address    TEXT NOT NULL,
	chase_address    TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'research',
	last_action_at   TIMESTAMPTZ NOT NULL,
	phone            TEXT,
	fax              TEXT,
	email            TEXT,
	contact_name     TEXT,
	research_agent   TEXT,
	version          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS audit_entries (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	attempt_id TEXT NOT NULL REFERENCES attempts(id),
	field      TEXT NOT NULL,
	from_value TEXT,
	to_value   TEXT,
	user_name  TEXT NOT NULL,
	reason     TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_last_action ON attempts(last_action_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_entries_attempt_id ON audit_entries(attempt_id, seq);
`

var attemptCopyColumns = []string{
	"id", "retrieval_method", "client_name", "demand_id", "provider_name", "provider_npi",
	"provider_group", "start_address", "chase_address", "status", "last_action_at",
	"phone", "fax", "email", "contact_name", "research_agent", "version",
}

var auditCopyColumns = []string{
	"id", "attempt_id", "field", "from_value", "to_value", "user_name", "reason", "created_at",
}

// Ping verifies the pool can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// GetAttempt reads the attempt and its audit trail from one snapshot.
func (s *PostgresStore) GetAttempt(ctx context.Context, id string) (*model.RetrievalAttempt, error) {
	var a *model.RetrievalAttempt
	err := db.InReadTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id)
		got, err := scanPgAttempt(row)
		if eris.Is(err, pgx.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "postgres: get attempt %s", id)
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: get attempt %s", id)
		}

		got.Audit, err = listPgAudit(ctx, tx, id)
		if err != nil {
			return err
		}
		a = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *PostgresStore) ListAttempts(ctx context.Context, filter AttemptFilter) ([]model.RetrievalAttempt, error) {
	var statuses, ids []string
	if len(filter.Statuses) > 0 {
		statuses = statusStrings(filter.Statuses)
	}
	if len(filter.IDs) > 0 {
		ids = filter.IDs
	}
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		AND ($2::text[] IS NULL OR id = ANY($2))
		ORDER BY last_action_at DESC, id
		LIMIT $3`,
		statuses, ids, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list attempts")
	}
	defer rows.Close()

	var out []model.RetrievalAttempt
	for rows.Next() {
		a, err := scanPgAttempt(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan attempt")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list attempts rows")
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, a model.RetrievalAttempt) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO attempts (`+attemptColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
			attemptArgs(a)...,
		)
		if isUniqueViolation(err) {
			return eris.Wrapf(ErrDuplicate, "postgres: create attempt %s", a.ID)
		}
		if err != nil {
			return eris.Wrapf(err, "postgres: insert attempt %s", a.ID)
		}
		return insertPgAudit(ctx, tx, a.Audit)
	})
}

// ImportAttempts loads attempts and their seeded audit entries with COPY in
// one transaction. Nothing is written when either copy fails.
func (s *PostgresStore) ImportAttempts(ctx context.Context, attempts []model.RetrievalAttempt) (int, error) {
	if len(attempts) == 0 {
		return 0, nil
	}
	rows := make([][]any, 0, len(attempts))
	var audit [][]any
	for _, a := range attempts {
		rows = append(rows, attemptArgs(a))
		for _, e := range a.Audit {
			audit = append(audit, auditArgs(e))
		}
	}

	var n int64
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		copied, err := db.CopyFrom(ctx, tx, "attempts", attemptCopyColumns, rows)
		if isUniqueViolation(err) {
			return eris.Wrap(ErrDuplicate, "postgres: import attempts")
		}
		if err != nil {
			return eris.Wrap(err, "postgres: import attempts")
		}
		if _, err := db.CopyFrom(ctx, tx, "audit_entries", auditCopyColumns, audit); err != nil {
			return eris.Wrap(err, "postgres: import audit entries")
		}
		n = copied
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *PostgresStore) Commit(ctx context.Context, updates ...Update) error {
	if err := checkBatch(updates); err != nil {
		return err
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, u := range updates {
			a := u.Attempt
			tag, err := tx.Exec(ctx,
				`UPDATE attempts SET chase_address = $1, status = $2, last_action_at = $3,
					phone = $4, fax = $5, email = $6, contact_name = $7, version = $8
				WHERE id = $9 AND version = $10`,
				a.ChaseAddress, string(a.Status), a.LastActionAt.UTC(),
				model.StrPtr(a.Phone), model.StrPtr(a.Fax), model.StrPtr(a.Email), model.StrPtr(a.ContactName),
				a.Version, a.ID, u.BaseVersion,
			)
			if err != nil {
				return eris.Wrapf(err, "postgres: update attempt %s", a.ID)
			}
			if tag.RowsAffected() == 0 {
				return pgMissOrConflict(ctx, tx, a.ID, u.BaseVersion)
			}
			if err := insertPgAudit(ctx, tx, u.Entries); err != nil {
				return err
			}
		}
		return nil
	})
}

func pgMissOrConflict(ctx context.Context, tx pgx.Tx, id string, base int) error {
	var stored int
	err := tx.QueryRow(ctx, `SELECT version FROM attempts WHERE id = $1`, id).Scan(&stored)
	if eris.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "postgres: commit attempt %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read version %s", id)
	}
	return eris.Wrapf(ErrVersionConflict, "postgres: commit attempt %s at version %d, stored %d", id, base, stored)
}

func (s *PostgresStore) ListAudit(ctx context.Context, attemptID string) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	err := db.InReadTx(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM attempts WHERE id = $1)`, attemptID).Scan(&exists)
		if err != nil {
			return eris.Wrapf(err, "postgres: check attempt %s", attemptID)
		}
		if !exists {
			return eris.Wrapf(ErrNotFound, "postgres: list audit %s", attemptID)
		}
		out, err = listPgAudit(ctx, tx, attemptID)
		return err
	})
	return out, err
}

func listPgAudit(ctx context.Context, tx pgx.Tx, attemptID string) ([]model.AuditEntry, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, attempt_id, field, from_value, to_value, user_name, reason, created_at
		FROM audit_entries WHERE attempt_id = $1 ORDER BY seq`,
		attemptID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list audit %s", attemptID)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var field string
		var reason *string
		if err := rows.Scan(&e.ID, &e.AttemptID, &field, &e.From, &e.To, &e.User, &reason, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit entry")
		}
		e.Field = model.AuditField(field)
		e.Reason = model.Deref(reason)
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list audit rows")
}

func insertPgAudit(ctx context.Context, tx pgx.Tx, entries []model.AuditEntry) error {
	for _, e := range entries {
		_, err := tx.Exec(ctx,
			`INSERT INTO audit_entries (id, attempt_id, field, from_value, to_value, user_name, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			auditArgs(e)...,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert audit entry %s", e.ID)
		}
	}
	return nil
}

func auditArgs(e model.AuditEntry) []any {
	return []any{e.ID, e.AttemptID, string(e.Field), e.From, e.To, e.User, model.StrPtr(e.Reason), e.Timestamp.UTC()}
}

func scanPgAttempt(row pgx.Row) (*model.RetrievalAttempt, error) {
	var a model.RetrievalAttempt
	var method, status string
	var phone, fax, email, contact, agent *string

	err := row.Scan(&a.ID, &method, &a.ClientName, &a.DemandID, &a.ProviderName, &a.ProviderNPI,
		&a.ProviderGroup, &a.StartAddress, &a.ChaseAddress, &status, &a.LastActionAt,
		&phone, &fax, &email, &contact, &agent, &a.Version)
	if err != nil {
		return nil, err
	}
	a.RetrievalMethod = model.RetrievalMethod(method)
	a.Status = model.Status(status)
	a.LastActionAt = a.LastActionAt.UTC()
	a.Phone = model.Deref(phone)
	a.Fax = model.Deref(fax)
	a.Email = model.Deref(email)
	a.ContactName = model.Deref(contact)
	a.ResearchAgent = model.Deref(agent)
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
