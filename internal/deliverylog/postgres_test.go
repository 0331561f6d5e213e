package deliverylog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRecorder_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS mandrill_send_log").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresRecorder(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_PrepareSkipsDDLWhenTableExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT to_regclass").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow("mandrill_send_log"))

	require.NoError(t, NewPostgresRecorder(db).Prepare(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_PrepareCreatesMissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT to_regclass").
		WillReturnRows(sqlmock.NewRows([]string{"to_regclass"}).AddRow(nil))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS mandrill_send_log").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresRecorder(db).Prepare(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_PrepareCheckFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT to_regclass").WillReturnError(errors.New("permission denied"))

	err = NewPostgresRecorder(db).Prepare(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO mandrill_send_log").
		WithArgs(id, "mandrill", "sandbox", "default", "sendTemplate", "welcome", "Hi", 2, true,
			sql.NullString{String: "a:b", Valid: true}, sql.NullString{}, sql.NullString{}, sentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = NewPostgresRecorder(db).Record(context.Background(), Entry{
		ID:          id,
		Gateway:     "mandrill",
		Environment: "sandbox",
		EndpointID:  "default",
		Action:      "sendTemplate",
		Slug:        "welcome",
		Subject:     "Hi",
		Recipients:  2,
		Successful:  true,
		ReferenceID: "a:b",
		SentAt:      sentAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_RecordAssignsIDAndTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO mandrill_send_log").
		WillReturnError(errors.New("connection reset"))

	err = NewPostgresRecorder(db).Record(context.Background(), Entry{Slug: "welcome"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_Recent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "gateway", "environment", "endpoint_id", "action", "slug",
		"subject", "recipients", "successful", "reference_id", "message", "error", "sent_at"}).
		AddRow(id.String(), "mandrill", "live", "default", "sendTemplate", "welcome",
			"Hi", 1, false, nil, "hard-bounce", nil, sentAt)

	mock.ExpectQuery("SELECT (.+) FROM mandrill_send_log ORDER BY sent_at DESC LIMIT").
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := NewPostgresRecorder(db).Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "welcome", e.Slug)
	assert.Equal(t, 1, e.Recipients)
	assert.False(t, e.Successful)
	assert.Empty(t, e.ReferenceID)
	assert.Equal(t, "hard-bounce", e.Message)
	assert.Equal(t, sentAt, e.SentAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
