package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFDACategoryIsValid(t *testing.T) {
	for _, c := range []FDACategory{CategoryA, CategoryB, CategoryC, CategoryD, CategoryX, CategoryN} {
		assert.True(t, c.IsValid(), "category %s", c)
	}
	for _, c := range []FDACategory{"", "E", "a", "AB"} {
		assert.False(t, c.IsValid(), "category %q", c)
	}
}

func TestFDACategoryRiskPredicates(t *testing.T) {
	assert.True(t, CategoryX.IsContraindicated())
	assert.False(t, CategoryD.IsContraindicated())

	assert.True(t, CategoryX.IsSeriousRisk())
	assert.True(t, CategoryD.IsSeriousRisk())
	assert.False(t, CategoryC.IsSeriousRisk())
	assert.False(t, CategoryN.IsSeriousRisk())
}

func TestFDACategoryLogFields(t *testing.T) {
	fields := CategoryX.LogFields()
	assert.Equal(t, "X", fields["category"])
	assert.Equal(t, true, fields["contraindicated"])
	assert.Equal(t, true, fields["serious_risk"])
}

func TestSeverityRankOrdering(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityModerate.Rank())
	assert.Greater(t, SeverityModerate.Rank(), SeverityLow.Rank())
	assert.Greater(t, SeverityLow.Rank(), SeverityUnknown.Rank())
}

func TestSeverityAtLeast(t *testing.T) {
	assert.True(t, SeverityCritical.AtLeast(SeverityHigh))
	assert.True(t, SeverityHigh.AtLeast(SeverityHigh))
	assert.False(t, SeverityModerate.AtLeast(SeverityHigh))
	assert.False(t, SeverityUnknown.AtLeast(SeverityLow))
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityLow, SeverityCritical))
	assert.Equal(t, SeverityCritical, MaxSeverity(SeverityCritical, SeverityLow))
	assert.Equal(t, SeverityHigh, MaxSeverity(SeverityHigh, SeverityHigh))
	assert.Equal(t, SeverityLow, MaxSeverity(SeverityUnknown, SeverityLow))
}

func TestTrimesterValidity(t *testing.T) {
	assert.True(t, TrimesterFirst.IsValid())
	assert.True(t, TrimesterThird.IsValid())
	assert.False(t, Trimester(0).IsValid())
	assert.False(t, Trimester(4).IsValid())
}

func TestTrimesterString(t *testing.T) {
	assert.Equal(t, "first trimester", TrimesterFirst.String())
	assert.Equal(t, "trimester(9)", Trimester(9).String())
}

func TestRecommendationPriorityRank(t *testing.T) {
	assert.Greater(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Greater(t, PriorityHigh.Rank(), PriorityModerate.Rank())
	assert.Greater(t, PriorityModerate.Rank(), PriorityInformational.Rank())
	assert.Zero(t, RecommendationPriority("bogus").Rank())
}
