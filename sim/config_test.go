package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/review-impact/impact-sim/sim/trace"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Minute, cfg.ReviewDuration)
	assert.Equal(t, 1, cfg.ReviewersPerQueue)
	assert.Equal(t, PriorityAscending, cfg.PriorityOrder)
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero review duration", func(c *Config) { c.ReviewDuration = 0 }},
		{"no reviewers", func(c *Config) { c.ReviewersPerQueue = 0 }},
		{"unknown priority order", func(c *Config) { c.PriorityOrder = "sideways" }},
		{"zero event budget", func(c *Config) { c.MaxEvents = 0 }},
		{"negative horizon", func(c *Config) { c.Horizon = -time.Second }},
		{"unknown trace level", func(c *Config) { c.TraceLevel = trace.TraceLevel("verbose") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Validate_ZeroHorizonDisablesBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Horizon = 0
	assert.NoError(t, cfg.Validate())
}
