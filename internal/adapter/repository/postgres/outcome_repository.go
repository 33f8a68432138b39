package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/reqnotify/internal/domain"
)

const (
	outcomesTable     = "webhook_outcomes"
	outcomesTempTable = "webhook_outcomes_import"
)

// Schema is the DDL for the outcome archive and admin key tables.
const Schema = `
CREATE TABLE IF NOT EXISTS webhook_outcomes (
	notification_id TEXT PRIMARY KEY,
	url             TEXT NOT NULL,
	state           TEXT NOT NULL,
	status_code     INTEGER,
	error           TEXT,
	duration_ms     BIGINT NOT NULL,
	request_method  TEXT,
	request_path    TEXT,
	request_id      TEXT,
	scheduled_at    TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS webhook_outcomes_completed_at_idx ON webhook_outcomes (completed_at);
CREATE TABLE IF NOT EXISTS admin_api_keys (
	key        TEXT PRIMARY KEY,
	is_active  BOOLEAN NOT NULL DEFAULT true,
	expires_at TIMESTAMPTZ
);
`

// OutcomeRepository archives delivery outcomes in PostgreSQL.
type OutcomeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewOutcomeRepository creates a new PostgreSQL outcome archive.
func NewOutcomeRepository(db *sql.DB, logger *slog.Logger) *OutcomeRepository {
	return &OutcomeRepository{db: db, logger: logger.With("component", "postgres_outcome_repository")}
}

// Migrate creates the tables if they do not exist.
func (r *OutcomeRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// WriteOutcomeBatch copies a batch into a temp table and upserts it on notification_id,
// so a batch replayed after a missed ack does not create duplicates.
func (r *OutcomeRepository) WriteOutcomeBatch(ctx context.Context, outcomes []domain.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // no-op after Commit

	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+outcomesTempTable+` (LIKE `+outcomesTable+` INCLUDING DEFAULTS) ON COMMIT DROP;`)
	if err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(outcomesTempTable,
		"notification_id", "url", "state", "status_code", "error", "duration_ms",
		"request_method", "request_path", "request_id", "scheduled_at", "completed_at"))
	if err != nil {
		return err
	}

	for _, o := range outcomes {
		_, err = stmt.ExecContext(ctx,
			o.NotificationID, o.URL, string(o.State), nullInt(o.StatusCode), nullString(o.Error), o.Duration.Milliseconds(),
			o.RequestMethod, o.RequestPath, o.RequestID, o.ScheduledAt, o.CompletedAt)
		if err != nil {
			_ = stmt.Close()
			return fmt.Errorf("failed to stage outcome %s: %w", o.NotificationID, err)
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	_, err = txn.ExecContext(ctx, `
		INSERT INTO `+outcomesTable+` (notification_id, url, state, status_code, error, duration_ms,
			request_method, request_path, request_id, scheduled_at, completed_at)
		SELECT notification_id, url, state, status_code, error, duration_ms,
			request_method, request_path, request_id, scheduled_at, completed_at FROM `+outcomesTempTable+`
		ON CONFLICT (notification_id) DO UPDATE SET
			state = EXCLUDED.state,
			status_code = EXCLUDED.status_code,
			error = EXCLUDED.error,
			duration_ms = EXCLUDED.duration_ms,
			completed_at = EXCLUDED.completed_at;`)
	if err != nil {
		return fmt.Errorf("failed to upsert outcomes: %w", err)
	}

	return txn.Commit()
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
