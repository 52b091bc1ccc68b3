package service

import (
	"fmt"
	"math"

	"github.com/pregmed-safety-server/internal/domain"
)

// Baseline risk scores per FDA category, monotonically increasing with
// danger. Unclassified medications use the category C constant as a
// conservative default. Exported as named constants because the audit log
// schema depends on the arithmetic being stable across releases.
const (
	BaselineScoreA = 5
	BaselineScoreB = 15
	BaselineScoreC = 40
	BaselineScoreD = 70
	BaselineScoreX = 95
	BaselineScoreN = BaselineScoreC
)

// Trimester risk multipliers. The first trimester carries the highest
// multiplier, the third a moderate one, the second the baseline.
const (
	TrimesterMultiplierFirst  = 1.30
	TrimesterMultiplierSecond = 1.00
	TrimesterMultiplierThird  = 1.15
)

// Critical-period escalation factors, keyed by period severity.
const (
	CriticalEscalationCritical = 1.25
	CriticalEscalationHigh     = 1.15
	CriticalEscalationModerate = 1.05
)

// Override clamps. An explicit safe=false override forces the score to at
// least UnsafeOverrideFloor; declared risk tiers clamp toward caution,
// except the low-tier ceiling which may lower an inflated score.
const (
	UnsafeOverrideFloor = 75
	CriticalTierFloor   = 85
	HighTierFloor       = 70
	LowTierCeiling      = 25
)

// BaselineScore maps an FDA category to its baseline numeric risk.
// Fails with ErrInvalidCategory for categories outside the known set;
// that indicates corrupt reference data.
func BaselineScore(category domain.FDACategory) (int, error) {
	switch category {
	case domain.CategoryA:
		return BaselineScoreA, nil
	case domain.CategoryB:
		return BaselineScoreB, nil
	case domain.CategoryC:
		return BaselineScoreC, nil
	case domain.CategoryD:
		return BaselineScoreD, nil
	case domain.CategoryX:
		return BaselineScoreX, nil
	case domain.CategoryN:
		return BaselineScoreN, nil
	default:
		return 0, fmt.Errorf("category %q: %w", category, domain.ErrInvalidCategory)
	}
}

// trimesterMultiplier returns the risk multiplier for a trimester.
func trimesterMultiplier(t domain.Trimester) float64 {
	switch t {
	case domain.TrimesterFirst:
		return TrimesterMultiplierFirst
	case domain.TrimesterThird:
		return TrimesterMultiplierThird
	default:
		return TrimesterMultiplierSecond
	}
}

// criticalEscalation returns the escalation factor for a critical period
// severity. Severities below moderate do not escalate.
func criticalEscalation(s domain.Severity) float64 {
	switch s {
	case domain.SeverityCritical:
		return CriticalEscalationCritical
	case domain.SeverityHigh:
		return CriticalEscalationHigh
	case domain.SeverityModerate:
		return CriticalEscalationModerate
	default:
		return 1.0
	}
}

// clampScore rounds and clamps a raw score into [0, 100]. Every rounding
// rule lives here so audit reproducibility is bit-for-bit.
func clampScore(raw float64) int {
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ScoreMedication computes a single medication's risk score in [0, 100]
// for the given gestational week. The function is pure: identical inputs
// always produce identical output, which the audit trail depends on.
//
// Pipeline: baseline by category, trimester multiplier, critical-period
// escalation, then trimester-override clamps, then round and clamp.
func ScoreMedication(record *domain.MedicationRecord, week int) (int, domain.Severity, error) {
	trimester, err := TrimesterOf(week)
	if err != nil {
		return 0, domain.SeverityUnknown, err
	}

	baseline, err := BaselineScore(record.Category)
	if err != nil {
		return 0, domain.SeverityUnknown, err
	}

	raw := float64(baseline) * trimesterMultiplier(trimester)

	if period, ok, err := CriticalPeriodOf(week); err != nil {
		return 0, domain.SeverityUnknown, err
	} else if ok {
		raw *= criticalEscalation(period.Severity)
	}

	if ov, ok := record.OverrideFor(trimester); ok {
		raw = applyOverrideClamps(raw, ov)
	}

	score := clampScore(raw)
	return score, TierForScore(score), nil
}

// applyOverrideClamps applies trimester-override floors and ceilings.
// Overrides always move the score toward greater caution, except the
// explicit low-tier ceiling which may lower an inflated score.
func applyOverrideClamps(raw float64, ov domain.TrimesterOverride) float64 {
	if ov.Safe != nil && !*ov.Safe && raw < UnsafeOverrideFloor {
		raw = UnsafeOverrideFloor
	}

	switch ov.RiskTier {
	case domain.SeverityCritical:
		if raw < CriticalTierFloor {
			raw = CriticalTierFloor
		}
	case domain.SeverityHigh:
		if raw < HighTierFloor {
			raw = HighTierFloor
		}
	case domain.SeverityLow:
		if raw > LowTierCeiling {
			raw = LowTierCeiling
		}
	}

	return raw
}
