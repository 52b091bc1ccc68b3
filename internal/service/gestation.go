// Package service implements the pregnancy medication risk engine: the
// gestation calendar, category risk model, interaction checker, condition
// appropriateness model, and the composite risk calculator that combines
// them. All computations here are pure functions over immutable reference
// tables and are safe for unlimited concurrent use.
package service

import (
	"fmt"

	"github.com/pregmed-safety-server/internal/domain"
)

// Trimester partition boundaries. Intervals are closed on both ends:
// week 13 is still first trimester, week 14 opens the second, week 27
// closes the second, week 28 opens the third.
const (
	firstTrimesterEndWeek  = 13
	secondTrimesterEndWeek = 27
)

// criticalPeriods is the ordered critical-period table. The blanket
// first-trimester entry comes first; week-specific entries defined later
// override it where ranges overlap, so resolution takes the last match.
var criticalPeriods = []domain.CriticalPeriod{
	{Name: "organogenesis", StartWeek: 1, EndWeek: 13, Severity: domain.SeverityHigh},
	{Name: "neural tube formation", StartWeek: 3, EndWeek: 4, Severity: domain.SeverityCritical},
	{Name: "cardiac development", StartWeek: 5, EndWeek: 6, Severity: domain.SeverityCritical},
	{Name: "limb and organ differentiation", StartWeek: 7, EndWeek: 8, Severity: domain.SeverityHigh},
	{Name: "term and labor preparation", StartWeek: 37, EndWeek: 40, Severity: domain.SeverityModerate},
}

// ValidateWeek rejects gestational weeks outside [1, 40].
func ValidateWeek(week int) error {
	if week < domain.MinGestationWeek || week > domain.MaxGestationWeek {
		return fmt.Errorf("week %d: %w", week, domain.ErrOutOfRangeWeek)
	}
	return nil
}

// TrimesterOf maps a gestational week to its trimester. The partition has
// no overlap and no gap across weeks 1-40.
func TrimesterOf(week int) (domain.Trimester, error) {
	if err := ValidateWeek(week); err != nil {
		return 0, err
	}
	switch {
	case week <= firstTrimesterEndWeek:
		return domain.TrimesterFirst, nil
	case week <= secondTrimesterEndWeek:
		return domain.TrimesterSecond, nil
	default:
		return domain.TrimesterThird, nil
	}
}

// CriticalPeriodOf returns the critical period covering the week, or
// (zero, false) when the week is outside every sensitive window. When
// multiple table entries cover the week, the last-defined entry wins.
func CriticalPeriodOf(week int) (domain.CriticalPeriod, bool, error) {
	if err := ValidateWeek(week); err != nil {
		return domain.CriticalPeriod{}, false, err
	}

	var match domain.CriticalPeriod
	found := false
	for _, p := range criticalPeriods {
		if p.Contains(week) {
			match = p
			found = true
		}
	}
	return match, found, nil
}
