package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xpandai03/inbot-ai-sub000/internal/classify"
)

// Schema is the SQL DDL for the reports and report_evaluations tables.
// Execute it via [PostgresStore.Migrate] or apply it manually during
// deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS reports (
    id                 TEXT PRIMARY KEY,
    identity           TEXT NOT NULL,
    channel            TEXT NOT NULL,
    name               TEXT NOT NULL DEFAULT '',
    address            TEXT NOT NULL DEFAULT '',
    name_provenance    TEXT NOT NULL DEFAULT '',
    address_provenance TEXT NOT NULL DEFAULT '',
    intent             TEXT NOT NULL DEFAULT '',
    department         TEXT NOT NULL DEFAULT '',
    summary            TEXT NOT NULL DEFAULT '',
    method             TEXT NOT NULL DEFAULT '',
    transcript         TEXT NOT NULL DEFAULT '',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_reports_identity ON reports(identity);
CREATE INDEX IF NOT EXISTS idx_reports_department ON reports(department);

CREATE TABLE IF NOT EXISTS report_evaluations (
    id         BIGSERIAL PRIMARY KEY,
    record_id  TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    name       TEXT NOT NULL DEFAULT '',
    address    TEXT NOT NULL DEFAULT '',
    intent     TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    summary    TEXT NOT NULL DEFAULT '',
    method     TEXT NOT NULL DEFAULT '',
    changed    BOOLEAN NOT NULL DEFAULT false,
    status     TEXT NOT NULL DEFAULT 'proposed',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_report_evaluations_record ON report_evaluations(record_id);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] over the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] to
// ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the tables and indexes if they
// do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("record: migrate: %w", err)
	}
	return nil
}

// Create implements [Store.Create].
func (s *PostgresStore) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = NewID()
	}

	const query = `
		INSERT INTO reports (
			id, identity, channel, name, address,
			name_provenance, address_provenance,
			intent, department, summary, method, transcript
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`

	err := s.db.QueryRow(ctx, query,
		r.ID, r.Identity, string(r.Channel), r.Name, r.Address,
		r.NameProvenance, r.AddressProvenance,
		string(r.Intent), string(r.Department), r.Summary, string(r.Method), r.Transcript,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("record: create: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	r, err := getRecord(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Update implements [Store.Update].
func (s *PostgresStore) Update(ctx context.Context, r *Record) error {
	const query = `
		UPDATE reports SET
			name = $2, address = $3,
			name_provenance = $4, address_provenance = $5,
			intent = $6, department = $7, summary = $8, method = $9,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := s.db.QueryRow(ctx, query,
		r.ID, r.Name, r.Address,
		r.NameProvenance, r.AddressProvenance,
		string(r.Intent), string(r.Department), r.Summary, string(r.Method),
	).Scan(&r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("record: update %q: %w", r.ID, ErrNotFound)
		}
		return fmt.Errorf("record: update: %w", err)
	}
	return nil
}

// SetClassification implements [Store.SetClassification].
func (s *PostgresStore) SetClassification(ctx context.Context, id string, res classify.Result) error {
	const query = `
		UPDATE reports SET
			intent = $2, department = $3, summary = $4, method = $5,
			updated_at = now()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		id, string(res.Intent), string(res.Department), res.Summary, string(res.Method))
	if err != nil {
		return fmt.Errorf("record: set classification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record: set classification %q: %w", id, ErrNotFound)
	}
	return nil
}

// AppendEvaluation implements [Store.AppendEvaluation].
func (s *PostgresStore) AppendEvaluation(ctx context.Context, ev *Evaluation) error {
	const query = `
		INSERT INTO report_evaluations (
			record_id, name, address, intent, department, summary, method, changed, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at`

	ev.Status = EvaluationProposed
	err := s.db.QueryRow(ctx, query,
		ev.RecordID, ev.Name, ev.Address,
		string(ev.Intent), string(ev.Department), ev.Summary, string(ev.Method),
		ev.Changed, string(ev.Status),
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("record: append evaluation: %w", err)
	}
	return nil
}

// Evaluations implements [Store.Evaluations].
func (s *PostgresStore) Evaluations(ctx context.Context, recordID string) ([]Evaluation, error) {
	const query = `
		SELECT id, record_id, name, address, intent, department, summary, method,
		       changed, status, created_at
		FROM report_evaluations
		WHERE record_id = $1
		ORDER BY id`

	rows, err := s.db.Query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("record: evaluations: %w", err)
	}
	defer rows.Close()

	var evs []Evaluation
	for rows.Next() {
		var ev Evaluation
		if err := rows.Scan(
			&ev.ID, &ev.RecordID, &ev.Name, &ev.Address,
			&ev.Intent, &ev.Department, &ev.Summary, &ev.Method,
			&ev.Changed, &ev.Status, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("record: scan evaluation: %w", err)
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record: evaluations: %w", err)
	}
	return evs, nil
}

// ApplyEvaluation implements [Store.ApplyEvaluation]. The proposal lookup,
// record update, and status transitions run in a single transaction. Rows are
// locked in record-then-evaluation order so concurrent applies serialize.
func (s *PostgresStore) ApplyEvaluation(ctx context.Context, recordID string, evaluationID int64) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("record: begin apply: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := getRecordForUpdate(ctx, tx, recordID)
	if err != nil {
		return err
	}

	var ev Evaluation
	const evQuery = `
		SELECT id, record_id, name, address, intent, department, summary, method, changed, status
		FROM report_evaluations
		WHERE id = $1 AND record_id = $2
		FOR UPDATE`
	err = tx.QueryRow(ctx, evQuery, evaluationID, recordID).Scan(
		&ev.ID, &ev.RecordID, &ev.Name, &ev.Address,
		&ev.Intent, &ev.Department, &ev.Summary, &ev.Method,
		&ev.Changed, &ev.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("record: apply evaluation %d: %w", evaluationID, ErrNotFound)
		}
		return fmt.Errorf("record: load evaluation: %w", err)
	}

	// Already applied: nothing to do, the transaction is a no-op.
	if ev.Status == EvaluationApplied {
		return tx.Commit(ctx)
	}

	applyFields(r, &ev)

	const updQuery = `
		UPDATE reports SET
			name = $2, address = $3, intent = $4, department = $5,
			summary = $6, method = $7, updated_at = now()
		WHERE id = $1`
	if _, err := tx.Exec(ctx, updQuery,
		r.ID, r.Name, r.Address, string(r.Intent), string(r.Department),
		r.Summary, string(r.Method)); err != nil {
		return fmt.Errorf("record: apply update: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE report_evaluations SET status = $1 WHERE id = $2`,
		string(EvaluationApplied), ev.ID); err != nil {
		return fmt.Errorf("record: mark applied: %w", err)
	}

	// Every other open proposal for this record is now superseded.
	if _, err := tx.Exec(ctx,
		`UPDATE report_evaluations SET status = $1 WHERE record_id = $2 AND id <> $3 AND status = $4`,
		string(EvaluationSuperseded), recordID, ev.ID, string(EvaluationProposed)); err != nil {
		return fmt.Errorf("record: mark superseded: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("record: commit apply: %w", err)
	}
	return nil
}

// queryRower is the subset of DB/Tx needed by the record readers.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const recordColumns = `
	id, identity, channel, name, address,
	name_provenance, address_provenance,
	intent, department, summary, method, transcript,
	created_at, updated_at`

func getRecord(ctx context.Context, q queryRower, id string) (*Record, error) {
	return scanRecord(q.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM reports WHERE id = $1`, id), id)
}

func getRecordForUpdate(ctx context.Context, q queryRower, id string) (*Record, error) {
	return scanRecord(q.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM reports WHERE id = $1 FOR UPDATE`, id), id)
}

func scanRecord(row pgx.Row, id string) (*Record, error) {
	var r Record
	err := row.Scan(
		&r.ID, &r.Identity, &r.Channel, &r.Name, &r.Address,
		&r.NameProvenance, &r.AddressProvenance,
		&r.Intent, &r.Department, &r.Summary, &r.Method, &r.Transcript,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("record: get %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("record: get %q: %w", id, err)
	}
	return &r, nil
}
