package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregmed-safety-server/internal/domain"
)

func boolPtr(b bool) *bool { return &b }

func record(name string, category domain.FDACategory) *domain.MedicationRecord {
	return &domain.MedicationRecord{
		GenericName: name,
		Category:    category,
		DrugClass:   "test",
	}
}

func TestBaselineScoreMonotonicity(t *testing.T) {
	a, err := BaselineScore(domain.CategoryA)
	require.NoError(t, err)
	b, err := BaselineScore(domain.CategoryB)
	require.NoError(t, err)
	c, err := BaselineScore(domain.CategoryC)
	require.NoError(t, err)
	d, err := BaselineScore(domain.CategoryD)
	require.NoError(t, err)
	x, err := BaselineScore(domain.CategoryX)
	require.NoError(t, err)

	assert.Less(t, a, b)
	assert.Less(t, b, c)
	assert.Less(t, c, d)
	assert.Less(t, d, x)
}

func TestBaselineScoreUnclassifiedDefaultsConservative(t *testing.T) {
	n, err := BaselineScore(domain.CategoryN)
	require.NoError(t, err)
	c, err := BaselineScore(domain.CategoryC)
	require.NoError(t, err)
	assert.Equal(t, c, n)
}

func TestBaselineScoreRejectsUnknownCategory(t *testing.T) {
	_, err := BaselineScore(domain.FDACategory("Z"))
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestScoreMedicationSecondTrimesterBaseline(t *testing.T) {
	// Week 20: no multiplier, no sensitive window, score is the raw baseline.
	score, tier, err := ScoreMedication(record("acetaminophen", domain.CategoryB), 20)
	require.NoError(t, err)
	assert.Equal(t, BaselineScoreB, score)
	assert.Equal(t, domain.SeverityLow, tier)
}

func TestScoreMedicationTrimesterMultipliers(t *testing.T) {
	rec := record("nifedipine", domain.CategoryC)

	first, _, err := ScoreMedication(rec, 14)
	require.NoError(t, err)
	second, _, err := ScoreMedication(rec, 20)
	require.NoError(t, err)
	third, _, err := ScoreMedication(rec, 30)
	require.NoError(t, err)

	// Week 14 is second trimester; use week 10 for a first trimester
	// reading (inside organogenesis, escalation applies on top).
	assert.Equal(t, second, first)
	assert.Equal(t, 40, second)
	assert.Equal(t, 46, third) // 40 * 1.15

	earlyScore, _, err := ScoreMedication(rec, 10)
	require.NoError(t, err)
	assert.Equal(t, 60, earlyScore) // 40 * 1.30 * 1.15
}

func TestScoreMedicationCriticalPeriodEscalation(t *testing.T) {
	rec := record("sertraline", domain.CategoryC)

	// Week 5 sits in the cardiac window: 40 * 1.30 * 1.25 = 65.
	cardiac, _, err := ScoreMedication(rec, 5)
	require.NoError(t, err)
	assert.Equal(t, 65, cardiac)

	// Week 38 at term: 40 * 1.15 * 1.05 = 48.3 rounds to 48.
	term, _, err := ScoreMedication(rec, 38)
	require.NoError(t, err)
	assert.Equal(t, 48, term)
}

func TestScoreMedicationDeterminism(t *testing.T) {
	rec := record("warfarin", domain.CategoryX)
	first, firstTier, err := ScoreMedication(rec, 8)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		score, tier, err := ScoreMedication(rec, 8)
		require.NoError(t, err)
		assert.Equal(t, first, score)
		assert.Equal(t, firstTier, tier)
	}
}

func TestScoreMedicationUnsafeOverrideFloor(t *testing.T) {
	rec := record("ibuprofen", domain.CategoryC)
	rec.Overrides = map[domain.Trimester]domain.TrimesterOverride{
		domain.TrimesterThird: {Safe: boolPtr(false)},
	}

	// Raw third trimester score would be 46; the explicit unsafe flag
	// floors it at 75.
	score, tier, err := ScoreMedication(rec, 35)
	require.NoError(t, err)
	assert.Equal(t, UnsafeOverrideFloor, score)
	assert.Equal(t, domain.SeverityCritical, tier)
}

func TestScoreMedicationTierFloors(t *testing.T) {
	rec := record("ibuprofen", domain.CategoryC)
	rec.Overrides = map[domain.Trimester]domain.TrimesterOverride{
		domain.TrimesterThird: {Safe: boolPtr(false), RiskTier: domain.SeverityCritical},
	}

	score, _, err := ScoreMedication(rec, 35)
	require.NoError(t, err)
	assert.Equal(t, CriticalTierFloor, score)

	rec.Overrides[domain.TrimesterThird] = domain.TrimesterOverride{RiskTier: domain.SeverityHigh}
	score, _, err = ScoreMedication(rec, 35)
	require.NoError(t, err)
	assert.Equal(t, HighTierFloor, score)
}

func TestScoreMedicationLowTierCeilingLowersScore(t *testing.T) {
	rec := record("doxylamine", domain.CategoryC)
	rec.Overrides = map[domain.Trimester]domain.TrimesterOverride{
		domain.TrimesterFirst: {RiskTier: domain.SeverityLow},
	}

	// Raw week 10 score is 60; the declared low tier caps it at 25.
	score, tier, err := ScoreMedication(rec, 10)
	require.NoError(t, err)
	assert.Equal(t, LowTierCeiling, score)
	assert.Equal(t, domain.SeverityLow, tier)
}

func TestScoreMedicationOverrideOnlyAppliesInItsTrimester(t *testing.T) {
	rec := record("ibuprofen", domain.CategoryC)
	rec.Overrides = map[domain.Trimester]domain.TrimesterOverride{
		domain.TrimesterThird: {Safe: boolPtr(false), RiskTier: domain.SeverityCritical},
	}

	score, tier, err := ScoreMedication(rec, 20)
	require.NoError(t, err)
	assert.Equal(t, 40, score)
	assert.Equal(t, domain.SeverityModerate, tier)
}

func TestScoreMedicationClampsAtHundred(t *testing.T) {
	// Category X in the cardiac window: 95 * 1.30 * 1.25 = 154.4, clamped.
	score, tier, err := ScoreMedication(record("thalidomide", domain.CategoryX), 5)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
	assert.Equal(t, domain.SeverityCritical, tier)
}

func TestScoreMedicationRejectsBadWeek(t *testing.T) {
	_, _, err := ScoreMedication(record("acetaminophen", domain.CategoryB), 0)
	assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)
}

func TestTierForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Severity
	}{
		{0, domain.SeverityLow},
		{30, domain.SeverityLow},
		{31, domain.SeverityModerate},
		{50, domain.SeverityModerate},
		{51, domain.SeverityHigh},
		{70, domain.SeverityHigh},
		{71, domain.SeverityCritical},
		{100, domain.SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForScore(tt.score), "score %d", tt.score)
	}
}
