package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregmed-safety-server/internal/domain"
	"github.com/pregmed-safety-server/internal/refdata"
)

func newTestCalculator(t *testing.T) *RiskCalculator {
	t.Helper()
	logger := testLogger()
	catalog, err := refdata.NewCatalog(logger)
	require.NoError(t, err)
	interactions := NewInteractionTable(logger)
	conditions := NewConditionRegistry(logger, interactions)
	return NewRiskCalculator(logger, catalog, interactions, conditions)
}

func TestCalculateSingleSafeMedication(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(), []string{"acetaminophen"}, 20, "")
	require.NoError(t, err)

	assert.Equal(t, 15, a.Score)
	assert.Equal(t, domain.SeverityLow, a.Tier)
	assert.Equal(t, domain.TrimesterSecond, a.Trimester)
	assert.False(t, a.ContainsContraindicated)
	assert.False(t, a.ContainsSeriousRisk)
	assert.False(t, a.RequiresProviderConsent)
	assert.False(t, a.RequiresSpecialist)
	assert.Empty(t, a.Interactions)

	require.Len(t, a.Recommendations, 1)
	assert.Equal(t, domain.PriorityInformational, a.Recommendations[0].Priority)
	assert.Equal(t, "continue as directed", a.Recommendations[0].Action)
}

func TestCalculateContraindicatedMedication(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(), []string{"isotretinoin"}, 20, "")
	require.NoError(t, err)

	assert.Equal(t, 100, a.Score)
	assert.Equal(t, domain.SeverityCritical, a.Tier)
	assert.True(t, a.ContainsContraindicated)
	assert.True(t, a.ContainsSeriousRisk)
	assert.True(t, a.RequiresProviderConsent)
	assert.True(t, a.RequiresSpecialist)

	require.NotEmpty(t, a.Recommendations)
	assert.Equal(t, domain.PriorityCritical, a.Recommendations[0].Priority)
	assert.Equal(t, "discontinue immediately", a.Recommendations[0].Action)
	assert.Equal(t, "isotretinoin", a.Recommendations[0].Medication)
}

func TestCalculateInteractingPairThirdTrimester(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(), []string{"ibuprofen", "lisinopril"}, 35, "")
	require.NoError(t, err)

	assert.Equal(t, 100, a.Score)
	assert.Equal(t, domain.SeverityCritical, a.Tier)
	assert.True(t, a.ContainsSeriousRisk)
	assert.True(t, a.RequiresProviderConsent)
	assert.True(t, a.RequiresSpecialist)

	require.Len(t, a.Interactions, 2)
	assert.Equal(t, "nsaid-ace-inhibitor", a.Interactions[0].RuleID)
	assert.Equal(t, domain.SeverityCritical, a.Interactions[0].Severity)
	assert.Equal(t, "solo:lisinopril", a.Interactions[1].RuleID)
}

func TestCalculateInputOrderDoesNotMatter(t *testing.T) {
	calc := newTestCalculator(t)
	ctx := context.Background()

	a, err := calc.Calculate(ctx, []string{"ibuprofen", "lisinopril"}, 35, "")
	require.NoError(t, err)
	b, err := calc.Calculate(ctx, []string{"lisinopril", "ibuprofen"}, 35, "")
	require.NoError(t, err)

	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.Tier, b.Tier)
	assert.Equal(t, a.Interactions, b.Interactions)
}

func TestCalculateRecommendedForCondition(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(), []string{"methyldopa"}, 20, "hypertension")
	require.NoError(t, err)

	assert.Equal(t, 15, a.Score)
	assert.Equal(t, domain.SeverityLow, a.Tier)
	require.Len(t, a.ConditionFindings, 1)
	assert.Equal(t, domain.StatusRecommended, a.ConditionFindings[0].Status)
	assert.False(t, a.RequiresProviderConsent)
}

func TestCalculateAvoidForConditionScoresHigher(t *testing.T) {
	calc := newTestCalculator(t)
	ctx := context.Background()

	good, err := calc.Calculate(ctx, []string{"methyldopa"}, 20, "hypertension")
	require.NoError(t, err)
	bad, err := calc.Calculate(ctx, []string{"lisinopril"}, 20, "hypertension")
	require.NoError(t, err)

	assert.Greater(t, bad.Score, good.Score)
	assert.Equal(t, domain.SeverityCritical, bad.Tier)
	assert.True(t, bad.RequiresProviderConsent)
	require.Len(t, bad.ConditionFindings, 1)
	assert.Equal(t, domain.StatusAvoid, bad.ConditionFindings[0].Status)

	var found bool
	for _, rec := range bad.Recommendations {
		if rec.Action == "adjust regimen for condition" {
			found = true
		}
	}
	assert.True(t, found, "regimen change recommendation expected")
}

func TestCalculateEmptyMedicationList(t *testing.T) {
	calc := newTestCalculator(t)
	_, err := calc.Calculate(context.Background(), nil, 20, "")
	assert.ErrorIs(t, err, domain.ErrEmptyMedicationList)
}

func TestCalculateOutOfRangeWeek(t *testing.T) {
	calc := newTestCalculator(t)
	_, err := calc.Calculate(context.Background(), []string{"acetaminophen"}, 0, "")
	assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)

	_, err = calc.Calculate(context.Background(), []string{"acetaminophen"}, 41, "")
	assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)
}

func TestCalculateUnknownConditionFailsBeforeScoring(t *testing.T) {
	calc := newTestCalculator(t)
	_, err := calc.Calculate(context.Background(), []string{"acetaminophen"}, 20, "migraine")
	assert.ErrorIs(t, err, domain.ErrUnknownCondition)
}

func TestCalculateUnknownMedicationDegrades(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(), []string{"acetaminophen", "obscuredrug"}, 20, "")
	require.NoError(t, err)

	require.Len(t, a.Medications, 2)
	assert.True(t, a.Medications[0].Found)
	assert.False(t, a.Medications[1].Found)
	assert.Equal(t, domain.SeverityUnknown, a.Medications[1].Tier)

	// The unknown entry does not affect the blend; the score is the
	// single found medication's score.
	assert.Equal(t, 15, a.Score)

	var consultRec bool
	for _, rec := range a.Recommendations {
		if rec.Action == "consult clinical provider" && rec.Medication == "obscuredrug" {
			consultRec = true
		}
	}
	assert.True(t, consultRec)
}

func TestCalculatePolypharmacyPenaltyIsMonotonic(t *testing.T) {
	calc := newTestCalculator(t)
	ctx := context.Background()

	two, err := calc.Calculate(ctx, []string{"acetaminophen", "insulin"}, 20, "")
	require.NoError(t, err)
	three, err := calc.Calculate(ctx, []string{"acetaminophen", "insulin", "levothyroxine"}, 20, "")
	require.NoError(t, err)

	assert.Greater(t, three.Score, two.Score)
}

func TestCalculatePolypharmacyReviewRecommendation(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(),
		[]string{"acetaminophen", "insulin", "levothyroxine", "methyldopa"}, 20, "")
	require.NoError(t, err)

	var reviewRec bool
	for _, rec := range a.Recommendations {
		if rec.Action == "review regimen for polypharmacy reduction" {
			reviewRec = true
		}
	}
	assert.True(t, reviewRec)
}

func TestCalculateRecommendationsSortedByPriority(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(),
		[]string{"isotretinoin", "obscuredrug", "doxycycline"}, 20, "")
	require.NoError(t, err)

	require.NotEmpty(t, a.Recommendations)
	for i := 1; i < len(a.Recommendations); i++ {
		assert.GreaterOrEqual(t,
			a.Recommendations[i-1].Priority.Rank(),
			a.Recommendations[i].Priority.Rank())
	}
}

func TestBlendScoresMaxDominates(t *testing.T) {
	scores := []domain.MedicationScore{
		{Found: true, Score: 90},
		{Found: true, Score: 10},
	}
	// 0.6 * 90 + 0.4 * 50 = 74: the dangerous medication dominates the
	// composite even when the mean is low.
	assert.InDelta(t, 74.0, blendScores(scores), 0.001)
}

func TestBlendScoresSkipsNotFound(t *testing.T) {
	scores := []domain.MedicationScore{
		{Found: true, Score: 40},
		{Found: false, Score: 0},
	}
	assert.InDelta(t, 40.0, blendScores(scores), 0.001)

	assert.Zero(t, blendScores([]domain.MedicationScore{{Found: false}}))
}

func TestBuildAuditEntryHashIsReproducible(t *testing.T) {
	calc := newTestCalculator(t)

	a, err := calc.Calculate(context.Background(), []string{"acetaminophen"}, 20, "")
	require.NoError(t, err)

	first, err := BuildAuditEntry(a, "session-1", "patient-1")
	require.NoError(t, err)
	second, err := BuildAuditEntry(a, "session-2", "")
	require.NoError(t, err)

	assert.Len(t, first.ContentHash, 64)
	assert.Equal(t, first.ContentHash, second.ContentHash, "hash depends only on assessment content")
	assert.Equal(t, "session-1", first.SessionID)
	assert.Equal(t, "patient-1", first.PatientRef)
	require.NoError(t, first.Validate())
}
