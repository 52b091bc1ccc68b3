package refdata

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pregmed-safety-server/internal/domain"
)

// ResilientFinder wraps the database-backed repository with a circuit
// breaker and falls back to the built-in catalogue when the database is
// unavailable or the breaker is open. Assessments keep working on the
// embedded reference data during a database outage.
type ResilientFinder struct {
	primary  domain.MedicationFinder
	fallback domain.MedicationFinder
	breaker  *gobreaker.CircuitBreaker
	log      *logrus.Logger
}

// NewResilientFinder creates a breaker-protected finder. primary is
// typically the PostgresRepository, fallback the built-in Catalog.
func NewResilientFinder(primary, fallback domain.MedicationFinder, logger *logrus.Logger) *ResilientFinder {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "medication-catalogue",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Medication catalogue circuit breaker state change")
		},
	})

	return &ResilientFinder{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		log:      logger,
	}
}

// FindMedication tries the primary store through the breaker and degrades
// to the fallback catalogue on failure. A miss (nil record) on the primary
// is a valid answer and is returned without consulting the fallback.
func (f *ResilientFinder) FindMedication(ctx context.Context, name string) (*domain.MedicationRecord, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.primary.FindMedication(ctx, name)
	})
	if err == nil {
		rec, _ := result.(*domain.MedicationRecord)
		return rec, nil
	}

	f.log.WithFields(logrus.Fields{
		"medication": name,
		"error":      err,
	}).Warn("Primary medication store unavailable, using built-in catalogue")

	return f.fallback.FindMedication(ctx, name)
}
