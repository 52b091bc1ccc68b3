package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pregmed-safety-server/internal/domain"
)

func TestNewManagerDefaults(t *testing.T) {
	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Audit.Backend)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, m.Validate())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Config)
	}{
		{"bad port", func(c *domain.Config) { c.Server.Port = 0 }},
		{"bad audit backend", func(c *domain.Config) { c.Audit.Backend = "flatfile" }},
		{"missing sqlite path", func(c *domain.Config) { c.Audit.SQLitePath = "" }},
		{"negative retention", func(c *domain.Config) { c.Audit.RetentionDays = -1 }},
		{"db enabled without host", func(c *domain.Config) {
			c.Database.Enabled = true
			c.Database.Host = ""
		}},
		{"bad log level", func(c *domain.Config) { c.Logging.Level = "verbose" }},
		{"zero rate limit", func(c *domain.Config) { c.RateLimit.RequestsPerSecond = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)
			tt.mutate(m.GetConfig())
			assert.Error(t, m.Validate())
		})
	}
}
