package domain

import (
	"errors"
	"fmt"
	"time"
)

// TrimesterOverride declares explicit trimester-specific guidance for one
// medication. When present it takes precedence over category-derived
// defaults for that trimester only.
type TrimesterOverride struct {
	// Safe, when set, explicitly declares whether the medication is safe
	// in this trimester. nil means "no explicit declaration".
	Safe *bool `json:"safe,omitempty"`

	// RiskTier, when non-empty, clamps the computed score toward the tier.
	RiskTier Severity `json:"risk_tier,omitempty"`

	Warnings     []string `json:"warnings,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

// MedicationRecord identifies one medication in the reference catalogue.
// Records are process-wide read-only reference data loaded once at startup.
type MedicationRecord struct {
	// GenericName is the canonical unique key, stored lowercase.
	GenericName string `json:"generic_name" validate:"required"`

	// BrandNames are case-insensitive aliases mapping onto the generic name.
	BrandNames []string `json:"brand_names,omitempty"`

	// Category is always present; records loaded without one default to N.
	Category FDACategory `json:"category" validate:"required"`

	// DrugClass is a free-text therapeutic class used in findings text.
	DrugClass string `json:"drug_class,omitempty"`

	// Overrides maps trimester number (1..3) to explicit guidance.
	Overrides map[Trimester]TrimesterOverride `json:"overrides,omitempty"`
}

// Validate ensures the record meets reference data integrity requirements.
// A failure here is a data-loading defect, not a user input error.
func (m *MedicationRecord) Validate() error {
	if m.GenericName == "" {
		return fmt.Errorf("medication record validation: %w", errors.New("generic name is required"))
	}
	if !m.Category.IsValid() {
		return fmt.Errorf("medication record %q validation: %w", m.GenericName, ErrInvalidFDACategory)
	}
	for tri, ov := range m.Overrides {
		if !tri.IsValid() {
			return fmt.Errorf("medication record %q validation: %w", m.GenericName, ErrInvalidTrimester)
		}
		if ov.RiskTier != "" && !ov.RiskTier.IsValid() {
			return fmt.Errorf("medication record %q validation: %w", m.GenericName, ErrInvalidSeverity)
		}
	}
	return nil
}

// OverrideFor returns the trimester override for the given trimester, if any.
func (m *MedicationRecord) OverrideFor(t Trimester) (TrimesterOverride, bool) {
	ov, ok := m.Overrides[t]
	return ov, ok
}

// CriticalPeriod tags a week range with heightened fetal-development
// sensitivity, independent of trimester severity.
type CriticalPeriod struct {
	Name      string   `json:"name"`
	StartWeek int      `json:"start_week"`
	EndWeek   int      `json:"end_week"`
	Severity  Severity `json:"severity"`
}

// Contains reports whether the week falls inside the period's closed range.
func (p CriticalPeriod) Contains(week int) bool {
	return week >= p.StartWeek && week <= p.EndWeek
}

// InteractionRule describes a known pregnancy-specific interaction, keyed
// by an unordered pair of generic medication names, or by a single name for
// "unsafe alone in pregnancy" rules.
type InteractionRule struct {
	// ID is a stable identifier; synthesized solo rules use a "solo:" prefix.
	ID string `json:"id"`

	// Medications holds one name (solo rule) or two (pair rule), lowercase.
	Medications []string `json:"medications"`

	Severity Severity `json:"severity"`

	// TrimesterRisk optionally overrides the finding severity per trimester.
	TrimesterRisk map[Trimester]Severity `json:"trimester_risk,omitempty"`

	MaternalEffect string `json:"maternal_effect,omitempty"`
	FetalEffect    string `json:"fetal_effect,omitempty"`
	NeonatalEffect string `json:"neonatal_effect,omitempty"`

	// Alternatives maps a medication name to suggested substitutions.
	Alternatives map[string][]string `json:"alternatives,omitempty"`
}

// IsSolo reports whether the rule applies to a single medication.
func (r *InteractionRule) IsSolo() bool {
	return len(r.Medications) == 1
}

// SeverityAt resolves the effective severity for a trimester, preferring
// the per-trimester override when one is declared.
func (r *InteractionRule) SeverityAt(t Trimester) Severity {
	if s, ok := r.TrimesterRisk[t]; ok {
		return s
	}
	return r.Severity
}

// Validate ensures the rule is usable by the interaction checker.
func (r *InteractionRule) Validate() error {
	if len(r.Medications) < 1 || len(r.Medications) > 2 {
		return fmt.Errorf("interaction rule %q validation: %w", r.ID, errors.New("rule must name one or two medications"))
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("interaction rule %q validation: %w", r.ID, ErrInvalidSeverity)
	}
	for tri, s := range r.TrimesterRisk {
		if !tri.IsValid() {
			return fmt.Errorf("interaction rule %q validation: %w", r.ID, ErrInvalidTrimester)
		}
		if !s.IsValid() {
			return fmt.Errorf("interaction rule %q validation: %w", r.ID, ErrInvalidSeverity)
		}
	}
	return nil
}

// InteractionFinding is one triggered interaction in an assessment output.
type InteractionFinding struct {
	RuleID         string              `json:"rule_id"`
	Medications    []string            `json:"medications"`
	Severity       Severity            `json:"severity"`
	Trimester      Trimester           `json:"trimester"`
	MaternalEffect string              `json:"maternal_effect,omitempty"`
	FetalEffect    string              `json:"fetal_effect,omitempty"`
	NeonatalEffect string              `json:"neonatal_effect,omitempty"`
	Alternatives   map[string][]string `json:"alternatives,omitempty"`

	// Synthesized marks findings generated for category D/X medications
	// that lack a curated rule entry.
	Synthesized bool `json:"synthesized,omitempty"`
}

// MaternalConditionProfile carries condition-specific medication guidance.
// Profiles are process-wide read-only reference data.
type MaternalConditionProfile struct {
	// Name is the canonical condition key, stored lowercase.
	Name string `json:"name" validate:"required"`

	FirstLine  []string `json:"first_line"`
	SecondLine []string `json:"second_line,omitempty"`
	Avoid      []string `json:"avoid"`

	Risks []string `json:"risks,omitempty"`

	// TrimesterGuidance must define guidance for all three trimesters.
	TrimesterGuidance map[Trimester]string `json:"trimester_guidance"`
}

// Validate enforces the profile invariants: all three trimester guidance
// strings present, lists well-formed.
func (p *MaternalConditionProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("condition profile validation: %w", errors.New("condition name is required"))
	}
	for _, tri := range []Trimester{TrimesterFirst, TrimesterSecond, TrimesterThird} {
		if p.TrimesterGuidance[tri] == "" {
			return fmt.Errorf("condition profile %q validation: missing guidance for %s", p.Name, tri)
		}
	}
	if len(p.FirstLine) == 0 {
		return fmt.Errorf("condition profile %q validation: %w", p.Name, errors.New("first-line list is required"))
	}
	return nil
}

// MedicationScore is the per-medication scoring result inside an assessment.
// Medications missing from the reference store carry Found=false and are
// excluded from numeric aggregation but still appear in output.
type MedicationScore struct {
	Name        string      `json:"name"`
	GenericName string      `json:"generic_name,omitempty"`
	Found       bool        `json:"found"`
	Category    FDACategory `json:"category,omitempty"`
	Score       int         `json:"score"`
	Tier        Severity    `json:"tier"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// ConditionFinding is one condition-appropriateness classification in an
// assessment output.
type ConditionFinding struct {
	Medication string        `json:"medication"`
	Condition  string        `json:"condition"`
	Status     RegimenStatus `json:"status"`
	Guidance   string        `json:"guidance,omitempty"`
}

// RegimenAssessment is the condition-appropriateness result for a full
// medication list.
type RegimenAssessment struct {
	Condition       string             `json:"condition"`
	Findings        []ConditionFinding `json:"findings"`
	NeedsChange     bool               `json:"needs_change"`
	Optimal         bool               `json:"optimal"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`
}

// Recommendation is one entry in the ranked recommendation list.
type Recommendation struct {
	Priority   RecommendationPriority `json:"priority"`
	Medication string                 `json:"medication,omitempty"`
	Action     string                 `json:"action"`
	Rationale  string                 `json:"rationale,omitempty"`
}

// RiskAssessment is the composite output of the risk calculator. It is
// created per request, never mutated after construction, and owned
// exclusively by the request that produced it.
type RiskAssessment struct {
	ID            string    `json:"id"`
	GestationWeek int       `json:"gestation_week"`
	Trimester     Trimester `json:"trimester"`
	Condition     string    `json:"condition,omitempty"`

	Score int      `json:"score"` // composite, 0-100
	Tier  Severity `json:"tier"`

	ContainsContraindicated bool `json:"contains_contraindicated"`
	ContainsSeriousRisk     bool `json:"contains_serious_risk"`

	Medications       []MedicationScore    `json:"medications"`
	Interactions      []InteractionFinding `json:"interactions"`
	ConditionFindings []ConditionFinding   `json:"condition_findings,omitempty"`
	Recommendations   []Recommendation     `json:"recommendations"`

	RequiresProviderConsent bool `json:"requires_provider_consent"`
	RequiresSpecialist      bool `json:"requires_specialist"`

	AssessedAt time.Time `json:"assessed_at"`
}

// WorstInteractionSeverity returns the most severe triggered interaction
// tier, or SeverityUnknown when no interaction was found.
func (a *RiskAssessment) WorstInteractionSeverity() Severity {
	worst := SeverityUnknown
	for _, f := range a.Interactions {
		worst = MaxSeverity(worst, f.Severity)
	}
	return worst
}

// AuditEntry is the append-only audit trail record shaped from a completed
// assessment. The core produces the entry; persistence is the audit sink's
// responsibility.
type AuditEntry struct {
	ID         int64     `json:"id,omitempty"`
	SessionID  string    `json:"session_id"`
	PatientRef string    `json:"patient_ref,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`

	// ContentHash is the sha256 hex digest of the canonical assessment
	// JSON; reproducibility of the hash is part of the audit contract.
	ContentHash string `json:"content_hash"`

	Data RiskAssessment `json:"data"`
}

// Validate ensures the entry is complete enough to persist.
func (e *AuditEntry) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("audit entry validation: %w", errors.New("session ID is required"))
	}
	if e.ContentHash == "" {
		return fmt.Errorf("audit entry validation: %w", errors.New("content hash is required"))
	}
	return nil
}
