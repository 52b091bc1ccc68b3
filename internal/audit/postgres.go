package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/pregmed-safety-server/internal/domain"
)

// PostgresStore implements domain.AuditSink on PostgreSQL, for deployments
// where the audit trail must live in shared managed storage rather than a
// local file.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to PostgreSQL and ensures the audit schema
// exists.
func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing connection, used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id BIGSERIAL PRIMARY KEY,
		session_id TEXT NOT NULL,
		patient_ref TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL,
		content_hash TEXT NOT NULL,
		score INTEGER NOT NULL,
		tier TEXT NOT NULL,
		data JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_audit_patient ON audit_entries(patient_ref);
	CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_entries(recorded_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append persists a new audit entry and assigns its generated ID.
func (s *PostgresStore) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO audit_entries (
			session_id, patient_ref, recorded_at, content_hash, score, tier, data
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		entry.SessionID,
		entry.PatientRef,
		entry.RecordedAt.UTC(),
		entry.ContentHash,
		entry.Data.Score,
		string(entry.Data.Tier),
		payload,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter, newest first.
func (s *PostgresStore) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PatientRef != "" {
		where = append(where, "patient_ref = "+arg(filter.PatientRef))
	}
	if filter.SessionID != "" {
		where = append(where, "session_id = "+arg(filter.SessionID))
	}
	if filter.MinTier != "" && filter.MinTier != domain.SeverityUnknown {
		placeholders := make([]string, 0, 4)
		for _, t := range tiersAtLeast(filter.MinTier) {
			placeholders = append(placeholders, arg(t))
		}
		where = append(where, fmt.Sprintf("tier IN (%s)", strings.Join(placeholders, ",")))
	}
	if !filter.From.IsZero() {
		where = append(where, "recorded_at >= "+arg(filter.From.UTC()))
	}
	if !filter.To.IsZero() {
		where = append(where, "recorded_at < "+arg(filter.To.UTC()))
	}

	query := "SELECT id, session_id, patient_ref, recorded_at, content_hash, data FROM audit_entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	query += " LIMIT " + arg(limit) + " OFFSET " + arg(filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var result []*domain.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// Count returns the total number of audit entries.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&count)
	return count, err
}

// PurgeBefore removes entries recorded before the cutoff and returns the
// number removed.
func (s *PostgresStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_entries WHERE recorded_at < $1", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", err)
	}
	return result.RowsAffected()
}

// ExportJSON writes all audit entries to the writer as a JSON document.
func (s *PostgresStore) ExportJSON(ctx context.Context, w io.Writer) error {
	all, err := s.Query(ctx, domain.AuditFilter{Limit: maxExportLimit})
	if err != nil {
		return fmt.Errorf("failed to list audit entries: %w", err)
	}

	export := &AuditExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Entries:    all,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
