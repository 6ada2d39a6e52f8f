package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/retrieval-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	last_action_at   DATETIME NOT NULL,
	phone            TEXT,
	fax              TEXT,
	email            TEXT,
	contact_name     TEXT,
	research_agent   TEXT,
	version          INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS audit_entries (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	attempt_id TEXT NOT NULL REFERENCES attempts(id),
	field      TEXT NOT NULL,
	from_value TEXT,
	to_value   TEXT,
	user_name  TEXT NOT NULL,
	reason     TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_status ON attempts(status);
CREATE INDEX IF NOT EXISTS idx_attempts_last_action ON attempts(last_action_at);
CREATE INDEX IF NOT EXISTS idx_audit_entries_attempt_id ON audit_entries(attempt_id);
`

const attemptColumns = `id, retrieval_method, client_name, demand_id, provider_name, provider_npi,
	provider_group, start_address, chase_address, status, last_action_at,
	phone, fax, email, contact_name, research_agent, version`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAttempt reads the attempt and its audit trail from one snapshot, so a
// concurrent Commit is seen either entirely or not at all.
func (s *SQLiteStore) GetAttempt(ctx context.Context, id string) (*model.RetrievalAttempt, error) {
	var a *model.RetrievalAttempt
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
		got, err := scanAttempt(row)
		if eris.Is(err, sql.ErrNoRows) {
			return eris.Wrapf(ErrNotFound, "sqlite: get attempt %s", id)
		}
		if err != nil {
			return eris.Wrapf(err, "sqlite: get attempt %s", id)
		}

		got.Audit, err = listAuditTx(ctx, tx, id)
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

func (s *SQLiteStore) ListAttempts(ctx context.Context, filter AttemptFilter) ([]model.RetrievalAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts`
	var where []string
	var args []any

	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if len(filter.IDs) > 0 {
		where = append(where, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_action_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list attempts")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.RetrievalAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan attempt")
		}
		out = append(out, *a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list attempts rows")
}

func (s *SQLiteStore) CreateAttempt(ctx context.Context, a model.RetrievalAttempt) error {
	_, err := s.ImportAttempts(ctx, []model.RetrievalAttempt{a})
	return err
}

func (s *SQLiteStore) ImportAttempts(ctx context.Context, attempts []model.RetrievalAttempt) (int, error) {
	if len(attempts) == 0 {
		return 0, nil
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range attempts {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE id = ?`, a.ID).Scan(&exists)
			if err != nil {
				return eris.Wrapf(err, "sqlite: check attempt %s", a.ID)
			}
			if exists > 0 {
				return eris.Wrapf(ErrDuplicate, "sqlite: create attempt %s", a.ID)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO attempts (`+attemptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				attemptArgs(a)...,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: insert attempt %s", a.ID)
			}
			if err := insertAuditTx(ctx, tx, a.Audit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(attempts), nil
}

func (s *SQLiteStore) Commit(ctx context.Context, updates ...Update) error {
	if err := checkBatch(updates); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			a := u.Attempt
			res, err := tx.ExecContext(ctx,
				`UPDATE attempts SET chase_address = ?, status = ?, last_action_at = ?,
					phone = ?, fax = ?, email = ?, contact_name = ?, version = ?
				WHERE id = ? AND version = ?`,
				a.ChaseAddress, string(a.Status), a.LastActionAt.UTC(),
				model.StrPtr(a.Phone), model.StrPtr(a.Fax), model.StrPtr(a.Email), model.StrPtr(a.ContactName),
				a.Version, a.ID, u.BaseVersion,
			)
			if err != nil {
				return eris.Wrapf(err, "sqlite: update attempt %s", a.ID)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return eris.Wrap(err, "sqlite: rows affected")
			}
			if n == 0 {
				return s.missOrConflict(ctx, tx, a.ID, u.BaseVersion)
			}
			if err := insertAuditTx(ctx, tx, u.Entries); err != nil {
				return err
			}
		}
		return nil
	})
}

// missOrConflict explains why a versioned update matched no rows.
func (s *SQLiteStore) missOrConflict(ctx context.Context, tx *sql.Tx, id string, base int) error {
	var stored int
	err := tx.QueryRowContext(ctx, `SELECT version FROM attempts WHERE id = ?`, id).Scan(&stored)
	if eris.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "sqlite: commit attempt %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: read version %s", id)
	}
	return eris.Wrapf(ErrVersionConflict, "sqlite: commit attempt %s at version %d, stored %d", id, base, stored)
}

func (s *SQLiteStore) ListAudit(ctx context.Context, attemptID string) ([]model.AuditEntry, error) {
	var out []model.AuditEntry
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE id = ?`, attemptID).Scan(&exists); err != nil {
			return eris.Wrapf(err, "sqlite: check attempt %s", attemptID)
		}
		if exists == 0 {
			return eris.Wrapf(ErrNotFound, "sqlite: list audit %s", attemptID)
		}
		var err error
		out, err = listAuditTx(ctx, tx, attemptID)
		return err
	})
	return out, err
}

func listAuditTx(ctx context.Context, tx *sql.Tx, attemptID string) ([]model.AuditEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, attempt_id, field, from_value, to_value, user_name, reason, created_at
		FROM audit_entries WHERE attempt_id = ? ORDER BY seq`,
		attemptID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list audit %s", attemptID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var field string
		var from, to, reason sql.NullString
		if err := rows.Scan(&e.ID, &e.AttemptID, &field, &from, &to, &e.User, &reason, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		e.Field = model.AuditField(field)
		e.From = nullToPtr(from)
		e.To = nullToPtr(to)
		e.Reason = reason.String
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list audit rows")
}

// inTx runs fn in a deferred transaction. Under WAL a read-only fn sees one
// snapshot for its whole duration.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

func insertAuditTx(ctx context.Context, tx *sql.Tx, entries []model.AuditEntry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO audit_entries (id, attempt_id, field, from_value, to_value, user_name, reason, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.AttemptID, string(e.Field), e.From, e.To, e.User, model.StrPtr(e.Reason), e.Timestamp.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert audit entry %s", e.ID)
		}
	}
	return nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanAttempt(row scannable) (*model.RetrievalAttempt, error) {
	var a model.RetrievalAttempt
	var method, status string
	var phone, fax, email, contact, agent sql.NullString
	var lastAction time.Time

	err := row.Scan(&a.ID, &method, &a.ClientName, &a.DemandID, &a.ProviderName, &a.ProviderNPI,
		&a.ProviderGroup, &a.StartAddress, &a.ChaseAddress, &status, &lastAction,
		&phone, &fax, &email, &contact, &agent, &a.Version)
	if err != nil {
		return nil, err
	}
	a.RetrievalMethod = model.RetrievalMethod(method)
	a.Status = model.Status(status)
	a.LastActionAt = lastAction.UTC()
	a.Phone = phone.String
	a.Fax = fax.String
	a.Email = email.String
	a.ContactName = contact.String
	a.ResearchAgent = agent.String
	return &a, nil
}

func attemptArgs(a model.RetrievalAttempt) []any {
	return []any{
		a.ID, string(a.RetrievalMethod), a.ClientName, a.DemandID, a.ProviderName, a.ProviderNPI,
		a.ProviderGroup, a.StartAddress, a.ChaseAddress, string(a.Status), a.LastActionAt.UTC(),
		model.StrPtr(a.Phone), model.StrPtr(a.Fax), model.StrPtr(a.Email),
		model.StrPtr(a.ContactName), model.StrPtr(a.ResearchAgent), a.Version,
	}
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
