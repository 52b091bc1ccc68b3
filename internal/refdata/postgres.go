package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// PostgresRepository serves medication records from a database-managed
// catalogue for deployments that maintain reference data outside the
// binary. Overrides are stored as a JSON column keyed by trimester number.
type PostgresRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresRepository creates a database-backed medication repository.
func NewPostgresRepository(db *pgxpool.Pool, logger *logrus.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, log: logger}
}

// FindMedication resolves a generic name or brand alias, case-insensitively.
// Returns (nil, nil) for unknown names.
func (r *PostgresRepository) FindMedication(ctx context.Context, name string) (*domain.MedicationRecord, error) {
	query := `
		SELECT m.generic_name, m.category, m.drug_class, m.brand_names, m.overrides
		FROM medications m
		WHERE m.generic_name = $1
		   OR $1 = ANY(SELECT lower(b) FROM unnest(m.brand_names) AS b)
		LIMIT 1`

	needle := strings.ToLower(strings.TrimSpace(name))

	var rec domain.MedicationRecord
	var category string
	var overridesJSON []byte

	err := r.db.QueryRow(ctx, query, needle).Scan(
		&rec.GenericName,
		&category,
		&rec.DrugClass,
		&rec.BrandNames,
		&overridesJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"medication": needle,
			"error":      err,
		}).Error("Failed to query medication")
		return nil, fmt.Errorf("querying medication: %w", err)
	}

	rec.Category = domain.FDACategory(category)
	if len(overridesJSON) > 0 {
		if err := unmarshalOverrides(overridesJSON, &rec); err != nil {
			return nil, fmt.Errorf("decoding overrides for %q: %w", rec.GenericName, err)
		}
	}

	if err := rec.Validate(); err != nil {
		// Corrupt reference data, not a user input problem.
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCategory, err)
	}

	return &rec, nil
}

// unmarshalOverrides decodes the JSON overrides column, keyed "1"/"2"/"3".
func unmarshalOverrides(data []byte, rec *domain.MedicationRecord) error {
	raw := make(map[string]domain.TrimesterOverride)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	rec.Overrides = make(map[domain.Trimester]domain.TrimesterOverride, len(raw))
	for key, ov := range raw {
		switch key {
		case "1":
			rec.Overrides[domain.TrimesterFirst] = ov
		case "2":
			rec.Overrides[domain.TrimesterSecond] = ov
		case "3":
			rec.Overrides[domain.TrimesterThird] = ov
		default:
			return fmt.Errorf("unexpected override key %q", key)
		}
	}
	return nil
}

// Count returns the number of medications in the database catalogue.
func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM medications").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting medications: %w", err)
	}
	return count, nil
}
