// Package audit provides the append-only assessment audit trail. Every
// completed risk assessment is recorded for legal traceability; entries
// are never updated, and the only sanctioned delete is retention cleanup.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pregmed-safety-server/internal/domain"
)

// SQLiteStore implements domain.AuditSink using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	// writeMu serializes appends per store target so concurrent
	// assessments never produce lost updates on one log file.
	writeMu sync.Mutex
}

// NewSQLiteStore creates a new SQLite audit store. It creates the
// database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// createSchema creates the audit tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		patient_ref TEXT DEFAULT '',
		recorded_at DATETIME NOT NULL,
		content_hash TEXT NOT NULL,
		score INTEGER NOT NULL,
		tier TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_entries(session_id);
	CREATE INDEX IF NOT EXISTS idx_audit_patient ON audit_entries(patient_ref);
	CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_entries(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_audit_tier ON audit_entries(tier);
	`

	_, err := db.Exec(schema)
	return err
}

// Append persists a new audit entry. Entries are append-only: there is no
// update path, and duplicate content hashes are allowed (re-assessments
// are distinct events).
func (s *SQLiteStore) Append(ctx context.Context, entry *domain.AuditEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (
			session_id, patient_ref, recorded_at, content_hash, score, tier, data
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		entry.SessionID,
		entry.PatientRef,
		entry.RecordedAt.UTC(),
		entry.ContentHash,
		entry.Data.Score,
		string(entry.Data.Tier),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	entry.ID = id

	return nil
}

// tiersAtLeast expands a minimum tier into the set of matching tier
// strings for SQL IN filtering.
func tiersAtLeast(min domain.Severity) []string {
	all := []domain.Severity{
		domain.SeverityLow,
		domain.SeverityModerate,
		domain.SeverityHigh,
		domain.SeverityCritical,
	}
	var out []string
	for _, s := range all {
		if s.AtLeast(min) {
			out = append(out, string(s))
		}
	}
	return out
}

// Query returns entries matching the filter, newest first.
func (s *SQLiteStore) Query(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditEntry, error) {
	var where []string
	var args []any

	if filter.PatientRef != "" {
		where = append(where, "patient_ref = ?")
		args = append(args, filter.PatientRef)
	}
	if filter.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.MinTier != "" && filter.MinTier != domain.SeverityUnknown {
		tiers := tiersAtLeast(filter.MinTier)
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tiers)), ",")
		where = append(where, fmt.Sprintf("tier IN (%s)", placeholders))
		for _, t := range tiers {
			args = append(args, t)
		}
	}
	if !filter.From.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		where = append(where, "recorded_at < ?")
		args = append(args, filter.To.UTC())
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
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

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

// scanner is an interface over sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEntry scans one audit row and decodes the assessment payload.
func scanEntry(s scanner) (*domain.AuditEntry, error) {
	entry := &domain.AuditEntry{}
	var recordedAt time.Time
	var payload string

	err := s.Scan(&entry.ID, &entry.SessionID, &entry.PatientRef, &recordedAt, &entry.ContentHash, &payload)
	if err != nil {
		return nil, err
	}
	entry.RecordedAt = recordedAt

	if err := json.Unmarshal([]byte(payload), &entry.Data); err != nil {
		return nil, fmt.Errorf("decoding assessment payload: %w", err)
	}
	return entry, nil
}

// Count returns the total number of audit entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&count)
	return count, err
}

// PurgeBefore removes entries recorded before the cutoff, for retention
// cleanup, and returns the number removed.
func (s *SQLiteStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_entries WHERE recorded_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", err)
	}
	return result.RowsAffected()
}

// Query limits for export and pagination.
const (
	defaultQueryLimit = 100
	maxExportLimit    = 1000000
)

// AuditExport represents the JSON export format.
type AuditExport struct {
	Version    string               `json:"version"`
	ExportedAt time.Time            `json:"exported_at"`
	Count      int                  `json:"count"`
	Entries    []*domain.AuditEntry `json:"entries"`
}

// ExportJSON writes all audit entries to the writer as a JSON document.
func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
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

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
