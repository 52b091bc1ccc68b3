package domain

import (
	"context"
	"io"
	"time"
)

// MedicationFinder resolves a medication name (generic or brand alias,
// case-insensitive) to its reference record. Implementations must be safe
// for concurrent use; reference data is read-only for the process lifetime.
type MedicationFinder interface {
	// FindMedication returns (nil, nil) when the name is unknown. A missing
	// medication is a soft condition, not an error.
	FindMedication(ctx context.Context, name string) (*MedicationRecord, error)
}

// AuditFilter narrows an audit trail query. Zero values mean "no filter".
type AuditFilter struct {
	PatientRef string
	SessionID  string
	MinTier    Severity
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// AuditSink is the append-only assessment recorder. Writes must be
// serialized per target by the implementation; the core imposes no
// ordering between independent assessments.
type AuditSink interface {
	// Append persists a new entry. Entries are never updated or replaced.
	Append(ctx context.Context, entry *AuditEntry) error

	// Query returns entries matching the filter, newest first.
	Query(ctx context.Context, filter AuditFilter) ([]*AuditEntry, error)

	// Count returns the total number of stored entries.
	Count(ctx context.Context) (int64, error)

	// PurgeBefore removes entries recorded before the cutoff and returns
	// the number removed. Retention cleanup is the only sanctioned delete.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// ExportJSON writes all entries to the writer as a JSON document.
	ExportJSON(ctx context.Context, w io.Writer) error

	// Close releases the sink's resources.
	Close() error
}

// ConfigManager provides access to runtime configuration.
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetAuditConfig() *AuditConfig
	Validate() error
}
