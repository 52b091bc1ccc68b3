package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregmed-safety-server/internal/domain"
)

func newTestRegistry(t *testing.T) *ConditionRegistry {
	t.Helper()
	logger := testLogger()
	return NewConditionRegistry(logger, NewInteractionTable(logger))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	registry := newTestRegistry(t)

	p, ok := registry.Lookup("Hypertension")
	require.True(t, ok)
	assert.Equal(t, "hypertension", p.Name)

	_, ok = registry.Lookup("  EPILEPSY ")
	assert.True(t, ok)

	_, ok = registry.Lookup("gout")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	registry := newTestRegistry(t)

	tests := []struct {
		medication string
		condition  string
		want       domain.RegimenStatus
	}{
		{"labetalol", "hypertension", domain.StatusRecommended},
		{"hydralazine", "hypertension", domain.StatusAcceptable},
		{"lisinopril", "hypertension", domain.StatusAvoid},
		{"acetaminophen", "hypertension", domain.StatusUnknown},
		{"insulin", "gestational diabetes", domain.StatusRecommended},
		{"metformin", "gestational diabetes", domain.StatusAcceptable},
		{"valproate", "epilepsy", domain.StatusAvoid},
		{"lamotrigine", "epilepsy", domain.StatusRecommended},
	}
	for _, tt := range tests {
		got, err := registry.Classify(tt.medication, tt.condition)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s for %s", tt.medication, tt.condition)
	}
}

func TestClassifyUnknownCondition(t *testing.T) {
	registry := newTestRegistry(t)
	_, err := registry.Classify("labetalol", "migraine")
	assert.ErrorIs(t, err, domain.ErrUnknownCondition)
}

func TestClassifyAvoidWinsOverOtherLists(t *testing.T) {
	registry := newTestRegistry(t)

	// Substring matching is loose in both directions; a name that hits
	// the avoid list classifies as avoid regardless of other matches.
	got, err := registry.Classify("lisinopril tablets", "hypertension")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvoid, got)
}

func TestClassifyLooseSubstringMatching(t *testing.T) {
	registry := newTestRegistry(t)

	got, err := registry.Classify("labetalol hcl", "hypertension")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRecommended, got)
}

func TestAssessRegimenOptimal(t *testing.T) {
	registry := newTestRegistry(t)
	records := []*domain.MedicationRecord{record("methyldopa", domain.CategoryB)}

	assessment, err := registry.AssessRegimen(records, "hypertension", 20)
	require.NoError(t, err)

	assert.False(t, assessment.NeedsChange)
	assert.True(t, assessment.Optimal)
	require.Len(t, assessment.Findings, 1)
	assert.Equal(t, domain.StatusRecommended, assessment.Findings[0].Status)
	assert.NotEmpty(t, assessment.Findings[0].Guidance)
	assert.Empty(t, assessment.Recommendations)
}

func TestAssessRegimenNeedsChange(t *testing.T) {
	registry := newTestRegistry(t)
	records := []*domain.MedicationRecord{record("lisinopril", domain.CategoryD)}

	assessment, err := registry.AssessRegimen(records, "hypertension", 20)
	require.NoError(t, err)

	assert.True(t, assessment.NeedsChange)
	assert.False(t, assessment.Optimal)
	require.NotEmpty(t, assessment.Recommendations)
	assert.Equal(t, domain.PriorityHigh, assessment.Recommendations[0].Priority)
	assert.Equal(t, "discontinue and substitute", assessment.Recommendations[0].Action)
}

func TestAssessRegimenSecondLineIsSuboptimal(t *testing.T) {
	registry := newTestRegistry(t)
	records := []*domain.MedicationRecord{record("metformin", domain.CategoryB)}

	assessment, err := registry.AssessRegimen(records, "gestational diabetes", 20)
	require.NoError(t, err)

	assert.False(t, assessment.NeedsChange)
	assert.False(t, assessment.Optimal)
	require.Len(t, assessment.Recommendations, 1)
	assert.Equal(t, domain.PriorityInformational, assessment.Recommendations[0].Priority)
}

func TestAssessRegimenUnknownMedication(t *testing.T) {
	registry := newTestRegistry(t)
	records := []*domain.MedicationRecord{record("ondansetron", domain.CategoryB)}

	assessment, err := registry.AssessRegimen(records, "hypertension", 20)
	require.NoError(t, err)

	assert.False(t, assessment.NeedsChange)
	assert.False(t, assessment.Optimal)
	require.Len(t, assessment.Recommendations, 1)
	assert.Equal(t, "review with provider", assessment.Recommendations[0].Action)
}

func TestAssessRegimenGuidanceFollowsTrimester(t *testing.T) {
	registry := newTestRegistry(t)
	records := []*domain.MedicationRecord{record("levothyroxine", domain.CategoryA)}

	early, err := registry.AssessRegimen(records, "hypothyroidism", 8)
	require.NoError(t, err)
	late, err := registry.AssessRegimen(records, "hypothyroidism", 36)
	require.NoError(t, err)

	assert.NotEqual(t, early.Findings[0].Guidance, late.Findings[0].Guidance)
}

func TestAssessRegimenUnknownCondition(t *testing.T) {
	registry := newTestRegistry(t)
	_, err := registry.AssessRegimen(nil, "migraine", 20)
	assert.ErrorIs(t, err, domain.ErrUnknownCondition)
}

func TestAssessRegimenRejectsBadWeek(t *testing.T) {
	registry := newTestRegistry(t)
	_, err := registry.AssessRegimen(nil, "hypertension", 50)
	assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)
}

func TestProfileNamesSorted(t *testing.T) {
	registry := newTestRegistry(t)
	names := registry.ProfileNames()
	require.Len(t, names, 7)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "hypertension")
	assert.Contains(t, names, "urinary tract infection")
}
