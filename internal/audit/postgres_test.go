package audit

import (
	"context"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregmed-safety-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestPostgresStoreAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db)
	entry := testEntry("session-1", domain.SeverityLow, time.Now().UTC())

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audit_entries")).
		WithArgs(
			entry.SessionID,
			entry.PatientRef,
			entry.RecordedAt.UTC(),
			entry.ContentHash,
			entry.Data.Score,
			string(entry.Data.Tier),
			sqlmock.AnyArg(),
		).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, store.Append(context.Background(), entry))
	assert.EqualValues(t, 7, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendValidatesFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db)
	entry := testEntry("session-1", domain.SeverityLow, time.Now().UTC())
	entry.ContentHash = ""

	// No SQL expectation registered: validation must fail before any query.
	assert.Error(t, store.Append(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreQueryBuildsTierFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db)

	rows := sqlmock.NewRows([]string{"id", "session_id", "patient_ref", "recorded_at", "content_hash", "data"}).
		AddRow(int64(1), "s1", "p1", time.Now().UTC(), "hash", `{"id":"a1","score":80,"tier":"critical"}`)

	mock.ExpectQuery(regexp.QuoteMeta("tier IN ($1,$2)")).
		WithArgs("high", "critical", 100, 0).
		WillReturnRows(rows)

	got, err := store.Query(context.Background(), domain.AuditFilter{MinTier: domain.SeverityHigh})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID)
	assert.Equal(t, domain.SeverityCritical, got[0].Data.Tier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorePurgeBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db)
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_entries WHERE recorded_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	removed, err := store.PurgeBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 12, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgresStoreWithDB(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM audit_entries")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}
