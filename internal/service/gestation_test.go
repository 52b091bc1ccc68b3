package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregmed-safety-server/internal/domain"
)

func TestValidateWeek(t *testing.T) {
	assert.NoError(t, ValidateWeek(1))
	assert.NoError(t, ValidateWeek(40))

	for _, week := range []int{0, -1, 41, 100} {
		err := ValidateWeek(week)
		require.Error(t, err, "week %d", week)
		assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)
	}
}

func TestTrimesterOfPartition(t *testing.T) {
	tests := []struct {
		week int
		want domain.Trimester
	}{
		{1, domain.TrimesterFirst},
		{12, domain.TrimesterFirst},
		{13, domain.TrimesterFirst},
		{14, domain.TrimesterSecond},
		{20, domain.TrimesterSecond},
		{27, domain.TrimesterSecond},
		{28, domain.TrimesterThird},
		{40, domain.TrimesterThird},
	}
	for _, tt := range tests {
		got, err := TrimesterOf(tt.week)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "week %d", tt.week)
	}
}

func TestTrimesterOfCoversEveryWeek(t *testing.T) {
	// Every week in [1, 40] maps to exactly one valid trimester.
	for week := 1; week <= 40; week++ {
		tri, err := TrimesterOf(week)
		require.NoError(t, err)
		assert.True(t, tri.IsValid(), "week %d", week)
	}
}

func TestTrimesterOfRejectsOutOfRange(t *testing.T) {
	_, err := TrimesterOf(0)
	assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)

	_, err = TrimesterOf(41)
	assert.ErrorIs(t, err, domain.ErrOutOfRangeWeek)
}

func TestCriticalPeriodOf(t *testing.T) {
	tests := []struct {
		week     int
		name     string
		severity domain.Severity
	}{
		{1, "organogenesis", domain.SeverityHigh},
		{3, "neural tube formation", domain.SeverityCritical},
		{4, "neural tube formation", domain.SeverityCritical},
		{5, "cardiac development", domain.SeverityCritical},
		{6, "cardiac development", domain.SeverityCritical},
		{7, "limb and organ differentiation", domain.SeverityHigh},
		{10, "organogenesis", domain.SeverityHigh},
		{13, "organogenesis", domain.SeverityHigh},
		{37, "term and labor preparation", domain.SeverityModerate},
		{40, "term and labor preparation", domain.SeverityModerate},
	}
	for _, tt := range tests {
		period, ok, err := CriticalPeriodOf(tt.week)
		require.NoError(t, err)
		require.True(t, ok, "week %d should be inside a sensitive window", tt.week)
		assert.Equal(t, tt.name, period.Name, "week %d", tt.week)
		assert.Equal(t, tt.severity, period.Severity, "week %d", tt.week)
	}
}

func TestCriticalPeriodOfQuietWeeks(t *testing.T) {
	for _, week := range []int{14, 20, 27, 36} {
		_, ok, err := CriticalPeriodOf(week)
		require.NoError(t, err)
		assert.False(t, ok, "week %d has no sensitive window", week)
	}
}

func TestCriticalPeriodSpecificWindowWinsOverOrganogenesis(t *testing.T) {
	// Weeks 3-8 sit inside the blanket organogenesis window but resolve
	// to the narrower entry.
	period, ok, err := CriticalPeriodOf(5)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cardiac development", period.Name)
	assert.Equal(t, domain.SeverityCritical, period.Severity)
}
