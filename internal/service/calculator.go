package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pregmed-safety-server/internal/domain"
)

// Composite tier thresholds. Exposed as named constants because the audit
// log schema and external consumers depend on tier boundaries being stable:
// score <= low is tier low, <= moderate is moderate, <= high is high,
// anything above is critical.
const (
	TierThresholdLow      = 30
	TierThresholdModerate = 50
	TierThresholdHigh     = 70
)

// Composite blend weights: a single highly dangerous medication must
// dominate the composite, but overall burden still matters.
const (
	MaxScoreWeight  = 0.60
	MeanScoreWeight = 0.40
)

// Flat interaction penalties per triggered finding, by severity. Penalties
// are additive and unbounded before the final clamp, so multiple critical
// interactions compound.
const (
	InteractionPenaltyCritical = 25
	InteractionPenaltyHigh     = 15
	InteractionPenaltyModerate = 8
	InteractionPenaltyLow      = 4
)

// Polypharmacy penalty: applied when the found-medication count reaches
// PolypharmacyThreshold, adding PolypharmacyPerMedication for each found
// medication beyond the second. A regimen of PolypharmacyReviewCount or
// more medications also earns a review recommendation.
const (
	PolypharmacyThreshold     = 3
	PolypharmacyPerMedication = 5
	PolypharmacyReviewCount   = 4
)

// Condition appropriateness penalties.
const (
	ConditionChangePenalty     = 20
	ConditionSuboptimalPenalty = 8
)

// TierForScore derives the qualitative tier from a clamped score using the
// fixed thresholds above.
func TierForScore(score int) domain.Severity {
	switch {
	case score <= TierThresholdLow:
		return domain.SeverityLow
	case score <= TierThresholdModerate:
		return domain.SeverityModerate
	case score <= TierThresholdHigh:
		return domain.SeverityHigh
	default:
		return domain.SeverityCritical
	}
}

// RiskCalculator orchestrates the gestation calendar, category risk model,
// interaction table and condition registry into one composite assessment.
// It is pure apart from reference lookups through the injected finder;
// audit persistence is the boundary layer's responsibility.
type RiskCalculator struct {
	logger       *logrus.Logger
	finder       domain.MedicationFinder
	interactions *InteractionTable
	conditions   *ConditionRegistry
}

// NewRiskCalculator creates a composite risk calculator.
func NewRiskCalculator(
	logger *logrus.Logger,
	finder domain.MedicationFinder,
	interactions *InteractionTable,
	conditions *ConditionRegistry,
) *RiskCalculator {
	return &RiskCalculator{
		logger:       logger,
		finder:       finder,
		interactions: interactions,
		conditions:   conditions,
	}
}

// Calculate turns a medication name list, gestational week and optional
// maternal condition into one composite risk assessment.
//
// Hard failures (empty list, out-of-range week, unknown condition) are
// returned before any scoring occurs; a half-built assessment is never
// returned. Medications missing from the reference store degrade to
// found=false entries so the review can proceed on the known subset.
func (c *RiskCalculator) Calculate(ctx context.Context, names []string, week int, condition string) (*domain.RiskAssessment, error) {
	if len(names) == 0 {
		return nil, domain.ErrEmptyMedicationList
	}
	trimester, err := TrimesterOf(week)
	if err != nil {
		return nil, err
	}
	if condition != "" {
		if _, ok := c.conditions.Lookup(condition); !ok {
			return nil, fmt.Errorf("condition %q: %w", condition, domain.ErrUnknownCondition)
		}
	}

	scores := make([]domain.MedicationScore, 0, len(names))
	records := make([]*domain.MedicationRecord, 0, len(names))

	for _, name := range names {
		rec, err := c.finder.FindMedication(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("looking up medication %q: %w", name, err)
		}
		if rec == nil {
			scores = append(scores, domain.MedicationScore{
				Name:  name,
				Found: false,
				Tier:  domain.SeverityUnknown,
			})
			continue
		}

		score, tier, err := ScoreMedication(rec, week)
		if err != nil {
			return nil, fmt.Errorf("scoring medication %q: %w", name, err)
		}

		ms := domain.MedicationScore{
			Name:        name,
			GenericName: rec.GenericName,
			Found:       true,
			Category:    rec.Category,
			Score:       score,
			Tier:        tier,
		}
		if ov, ok := rec.OverrideFor(trimester); ok {
			ms.Warnings = ov.Warnings
		}
		scores = append(scores, ms)
		records = append(records, rec)
	}

	findings, err := c.interactions.FindInteractions(records, week)
	if err != nil {
		return nil, err
	}

	raw := blendScores(scores)
	for _, f := range findings {
		raw += float64(interactionPenalty(f.Severity))
	}
	if len(records) >= PolypharmacyThreshold {
		raw += float64((len(records) - 2) * PolypharmacyPerMedication)
	}

	var regimen *domain.RegimenAssessment
	if condition != "" {
		regimen, err = c.conditions.AssessRegimen(records, condition, week)
		if err != nil {
			return nil, err
		}
		if regimen.NeedsChange {
			raw += ConditionChangePenalty
		} else if !regimen.Optimal {
			raw += ConditionSuboptimalPenalty
		}
	}

	score := clampScore(raw)
	tier := TierForScore(score)

	assessment := &domain.RiskAssessment{
		ID:            uuid.New().String(),
		GestationWeek: week,
		Trimester:     trimester,
		Condition:     condition,
		Score:         score,
		Tier:          tier,
		Medications:   scores,
		Interactions:  findings,
		AssessedAt:    time.Now().UTC(),
	}
	if regimen != nil {
		assessment.ConditionFindings = regimen.Findings
	}

	for _, rec := range records {
		if rec.Category.IsContraindicated() {
			assessment.ContainsContraindicated = true
		}
		if rec.Category.IsSeriousRisk() {
			assessment.ContainsSeriousRisk = true
		}
	}

	c.deriveEscalationFlags(assessment)
	assessment.Recommendations = c.buildRecommendations(assessment, records, regimen)

	c.logger.WithFields(logrus.Fields{
		"assessment_id":   assessment.ID,
		"week":            week,
		"trimester":       int(trimester),
		"condition":       condition,
		"medications":     len(names),
		"found":           len(records),
		"score":           score,
		"tier":            tier.String(),
		"interactions":    len(findings),
		"recommendations": len(assessment.Recommendations),
	}).Info("Completed composite risk assessment")

	return assessment, nil
}

// blendScores computes the weighted base composite over found medications:
// 60% the maximum individual score plus 40% the mean. Not-found entries are
// excluded from the aggregation.
func blendScores(scores []domain.MedicationScore) float64 {
	var sum, count float64
	var max int
	for _, s := range scores {
		if !s.Found {
			continue
		}
		sum += float64(s.Score)
		count++
		if s.Score > max {
			max = s.Score
		}
	}
	if count == 0 {
		return 0
	}
	return MaxScoreWeight*float64(max) + MeanScoreWeight*(sum/count)
}

// interactionPenalty maps a finding severity to its flat penalty.
func interactionPenalty(s domain.Severity) int {
	switch s {
	case domain.SeverityCritical:
		return InteractionPenaltyCritical
	case domain.SeverityHigh:
		return InteractionPenaltyHigh
	case domain.SeverityModerate:
		return InteractionPenaltyModerate
	case domain.SeverityLow:
		return InteractionPenaltyLow
	default:
		return 0
	}
}

// deriveEscalationFlags sets the provider-consent and specialist-referral
// flags from the composite score, category presence and finding severity.
func (c *RiskCalculator) deriveEscalationFlags(a *domain.RiskAssessment) {
	worstInteraction := a.WorstInteractionSeverity()

	a.RequiresProviderConsent = a.Score > TierThresholdModerate ||
		a.ContainsSeriousRisk ||
		worstInteraction.AtLeast(domain.SeverityHigh)

	a.RequiresSpecialist = a.Score > TierThresholdHigh ||
		a.ContainsContraindicated ||
		worstInteraction == domain.SeverityCritical
}

// buildRecommendations assembles the ranked recommendation list. Entries
// are never deduplicated across categories: a medication that is both
// category X and part of a critical interaction produces two entries.
func (c *RiskCalculator) buildRecommendations(a *domain.RiskAssessment, records []*domain.MedicationRecord, regimen *domain.RegimenAssessment) []domain.Recommendation {
	recs := make([]domain.Recommendation, 0)

	for _, rec := range records {
		switch rec.Category {
		case domain.CategoryX:
			recs = append(recs, domain.Recommendation{
				Priority:   domain.PriorityCritical,
				Medication: rec.GenericName,
				Action:     "discontinue immediately",
				Rationale:  rec.Category.Description(),
			})
		case domain.CategoryD:
			recs = append(recs, domain.Recommendation{
				Priority:   domain.PriorityHigh,
				Medication: rec.GenericName,
				Action:     "review necessity with provider",
				Rationale:  rec.Category.Description(),
			})
		}
	}

	for _, f := range a.Interactions {
		if !f.Severity.AtLeast(domain.SeverityHigh) {
			continue
		}
		priority := domain.PriorityHigh
		if f.Severity == domain.SeverityCritical {
			priority = domain.PriorityCritical
		}
		action := "avoid combination"
		if len(f.Medications) == 1 {
			action = "seek safer alternative"
		}
		recs = append(recs, domain.Recommendation{
			Priority:   priority,
			Medication: joinMedications(f.Medications),
			Action:     action,
			Rationale:  f.FetalEffect,
		})
	}

	if len(records) >= PolypharmacyReviewCount {
		recs = append(recs, domain.Recommendation{
			Priority:  domain.PriorityModerate,
			Action:    "review regimen for polypharmacy reduction",
			Rationale: fmt.Sprintf("%d concurrent medications increase cumulative fetal exposure", len(records)),
		})
	}

	if regimen != nil && regimen.NeedsChange {
		recs = append(recs, domain.Recommendation{
			Priority:  domain.PriorityHigh,
			Action:    "adjust regimen for condition",
			Rationale: fmt.Sprintf("regimen contains medications listed as avoid for %s", regimen.Condition),
		})
	}
	if regimen != nil {
		recs = append(recs, regimen.Recommendations...)
	}

	for _, s := range a.Medications {
		if s.Found {
			continue
		}
		recs = append(recs, domain.Recommendation{
			Priority:   domain.PriorityModerate,
			Medication: s.Name,
			Action:     "consult clinical provider",
			Rationale:  "medication not found in the pregnancy safety reference data",
		})
	}

	if len(recs) == 0 && a.Tier == domain.SeverityLow {
		recs = append(recs, domain.Recommendation{
			Priority:  domain.PriorityInformational,
			Action:    "continue as directed",
			Rationale: "no elevated pregnancy risk identified for this regimen",
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority.Rank() > recs[j].Priority.Rank()
	})
	return recs
}

func joinMedications(meds []string) string {
	out := ""
	for i, m := range meds {
		if i > 0 {
			out += " + "
		}
		out += m
	}
	return out
}

// BuildAuditEntry shapes a completed assessment into an append-only audit
// entry. The content hash is the sha256 hex digest of the assessment's
// canonical JSON encoding; the core only produces the entry, it never
// performs the write.
func BuildAuditEntry(a *domain.RiskAssessment, sessionID, patientRef string) (*domain.AuditEntry, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encoding assessment for audit: %w", err)
	}
	digest := sha256.Sum256(payload)

	return &domain.AuditEntry{
		SessionID:   sessionID,
		PatientRef:  patientRef,
		RecordedAt:  time.Now().UTC(),
		ContentHash: hex.EncodeToString(digest[:]),
		Data:        *a,
	}, nil
}
