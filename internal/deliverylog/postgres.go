package deliverylog

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `CREATE TABLE IF NOT EXISTS mandrill_send_log (
	id UUID PRIMARY KEY,
	gateway TEXT NOT NULL,
	environment TEXT NOT NULL,
	endpoint_id TEXT NOT NULL,
	action TEXT NOT NULL,
	slug TEXT NOT NULL,
	subject TEXT NOT NULL DEFAULT '',
	recipients INTEGER NOT NULL,
	successful BOOLEAN NOT NULL,
	reference_id TEXT,
	message TEXT,
	error TEXT,
	sent_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mandrill_send_log_sent_at ON mandrill_send_log (sent_at DESC)`

// PostgresRecorder stores entries in the mandrill_send_log table.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder creates a recorder on an open database handle.
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// EnsureSchema creates the table and index if they do not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating mandrill_send_log: %w", err)
	}
	return nil
}

// Prepare creates the schema only when the table is missing, so a database
// migrated ahead of time with cmd/migrate is never sent DDL at startup.
func (r *PostgresRecorder) Prepare(ctx context.Context) error {
	var table sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT to_regclass('mandrill_send_log')::text`).Scan(&table); err != nil {
		return fmt.Errorf("checking mandrill_send_log: %w", err)
	}
	if table.Valid {
		return nil
	}
	return r.EnsureSchema(ctx)
}

// Record inserts one entry.
func (r *PostgresRecorder) Record(ctx context.Context, e Entry) error {
	stamp(&e)

	query := `INSERT INTO mandrill_send_log (id, gateway, environment, endpoint_id, action, slug,
		subject, recipients, successful, reference_id, message, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query, e.ID, e.Gateway, e.Environment, e.EndpointID, e.Action,
		e.Slug, e.Subject, e.Recipients, e.Successful, nullString(e.ReferenceID),
		nullString(e.Message), nullString(e.Error), e.SentAt)
	if err != nil {
		return fmt.Errorf("recording send %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, gateway, environment, endpoint_id, action, slug, subject, recipients,
		successful, reference_id, message, error, sent_at
		FROM mandrill_send_log ORDER BY sent_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing sends: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var refID, msg, sendErr sql.NullString
		if err := rows.Scan(&e.ID, &e.Gateway, &e.Environment, &e.EndpointID, &e.Action, &e.Slug,
			&e.Subject, &e.Recipients, &e.Successful, &refID, &msg, &sendErr, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scanning send: %w", err)
		}
		e.ReferenceID = refID.String
		e.Message = msg.String
		e.Error = sendErr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
