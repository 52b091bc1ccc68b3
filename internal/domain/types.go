// Package domain contains core business entities and types for pregnancy
// medication safety assessment.
//
// Safety categories follow the historical FDA pregnancy letter categories
// (A/B/C/D/X) retained by most reference compendia, plus N for medications
// the reference data does not classify.
package domain

import (
	"errors"
	"fmt"
)

// FDACategory represents the FDA-style pregnancy safety category assigned
// to a medication. Exactly one category is assigned per medication, not
// per dose or per formulation.
type FDACategory string

const (
	CategoryA FDACategory = "A" // controlled studies show no risk
	CategoryB FDACategory = "B" // no evidence of risk in humans
	CategoryC FDACategory = "C" // risk cannot be ruled out
	CategoryD FDACategory = "D" // positive evidence of fetal risk
	CategoryX FDACategory = "X" // contraindicated in pregnancy
	CategoryN FDACategory = "N" // not classified
)

// Severity represents a qualitative risk tier used for critical periods,
// interaction findings, trimester overrides, and composite assessments.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
	SeverityUnknown  Severity = "unknown"
)

// Trimester identifies one of the three gestational periods.
type Trimester int

const (
	TrimesterFirst  Trimester = 1 // weeks 1-13
	TrimesterSecond Trimester = 2 // weeks 14-27
	TrimesterThird  Trimester = 3 // weeks 28-40
)

// Gestational week bounds. Weeks outside [MinGestationWeek, MaxGestationWeek]
// are rejected before any scoring occurs.
const (
	MinGestationWeek = 1
	MaxGestationWeek = 40
)

// RegimenStatus classifies a medication's appropriateness for a named
// maternal condition.
type RegimenStatus string

const (
	StatusRecommended RegimenStatus = "recommended" // first-line therapy
	StatusAcceptable  RegimenStatus = "acceptable"  // second-line therapy
	StatusAvoid       RegimenStatus = "avoid"       // contraindicated for the condition
	StatusUnknown     RegimenStatus = "unknown"     // not listed for the condition
)

// RecommendationPriority orders entries in the ranked recommendation list.
type RecommendationPriority string

const (
	PriorityCritical      RecommendationPriority = "CRITICAL"
	PriorityHigh          RecommendationPriority = "HIGH"
	PriorityModerate      RecommendationPriority = "MODERATE"
	PriorityInformational RecommendationPriority = "INFO"
)

// Validation errors for reference data integrity
var (
	ErrInvalidFDACategory = errors.New("invalid FDA pregnancy category")
	ErrInvalidSeverity    = errors.New("invalid severity tier")
	ErrInvalidTrimester   = errors.New("invalid trimester")
)

// IsValid validates that the category is one of the closed set {A,B,C,D,X,N}.
// A category outside this set indicates corrupt reference data, not bad user
// input, and must be surfaced as a data-loading defect.
func (c FDACategory) IsValid() bool {
	switch c {
	case CategoryA, CategoryB, CategoryC, CategoryD, CategoryX, CategoryN:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c FDACategory) String() string {
	return string(c)
}

// Description returns a human-readable description of the category for
// clinical reporting and patient communication.
func (c FDACategory) Description() string {
	switch c {
	case CategoryA:
		return "Category A - Controlled studies show no fetal risk"
	case CategoryB:
		return "Category B - No evidence of risk in humans"
	case CategoryC:
		return "Category C - Risk cannot be ruled out"
	case CategoryD:
		return "Category D - Positive evidence of fetal risk"
	case CategoryX:
		return "Category X - Contraindicated in pregnancy"
	case CategoryN:
		return "Not classified for pregnancy safety"
	default:
		return "Unknown category"
	}
}

// IsContraindicated reports whether the category alone contraindicates use
// during pregnancy.
func (c FDACategory) IsContraindicated() bool {
	return c == CategoryX
}

// IsSeriousRisk reports whether the category carries positive evidence of
// fetal risk (category D or worse).
func (c FDACategory) IsSeriousRisk() bool {
	return c == CategoryD || c == CategoryX
}

// LogFields returns structured logging fields for audit trails.
func (c FDACategory) LogFields() map[string]any {
	return map[string]any{
		"category":        string(c),
		"description":     c.Description(),
		"contraindicated": c.IsContraindicated(),
		"serious_risk":    c.IsSeriousRisk(),
		"is_valid":        c.IsValid(),
	}
}

// IsValid validates the severity tier.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical, SeverityUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// Rank returns a numeric ordering for severity comparison; higher is worse.
// Unknown ranks below low so missing data never escalates a finding.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// MaxSeverity returns the more severe of two tiers.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// IsValid validates the trimester number.
func (t Trimester) IsValid() bool {
	switch t {
	case TrimesterFirst, TrimesterSecond, TrimesterThird:
		return true
	default:
		return false
	}
}

// String returns a human-readable trimester name.
func (t Trimester) String() string {
	switch t {
	case TrimesterFirst:
		return "first trimester"
	case TrimesterSecond:
		return "second trimester"
	case TrimesterThird:
		return "third trimester"
	default:
		return fmt.Sprintf("trimester(%d)", int(t))
	}
}

// IsValid validates the regimen status.
func (rs RegimenStatus) IsValid() bool {
	switch rs {
	case StatusRecommended, StatusAcceptable, StatusAvoid, StatusUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the regimen status.
func (rs RegimenStatus) String() string {
	return string(rs)
}

// IsValid validates the recommendation priority.
func (p RecommendationPriority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityModerate, PriorityInformational:
		return true
	default:
		return false
	}
}

// Rank returns a numeric ordering for recommendation ranking; higher sorts
// first in the recommendation list.
func (p RecommendationPriority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityModerate:
		return 2
	case PriorityInformational:
		return 1
	default:
		return 0
	}
}
