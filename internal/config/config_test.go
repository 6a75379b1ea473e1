package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/grievance"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"GRIEVANCE_SERVER_PORT", "GRIEVANCE_ESCALATION_CRON", "GRIEVANCE_DUPLICATE_RADIUS_METERS",
	} {
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "@every 6h", cfg.Escalation.Cron)
	assert.Equal(t, 500.0, cfg.Duplicate.RadiusMeters)
	assert.Equal(t, 0.6, cfg.Duplicate.FlagThreshold)
	assert.Equal(t, 0.8, cfg.Duplicate.BlockThreshold)
	assert.Equal(t, 3, cfg.SLADays[grievance.CategoryPothole])
	assert.Equal(t, 14, cfg.SLADays[grievance.CategoryOther])
	assert.False(t, cfg.AI.Required)
}

func TestLoadHonorsEnvOverride(t *testing.T) {
	t.Setenv("GRIEVANCE_SERVER_PORT", "9090")
	t.Setenv("GRIEVANCE_AI_REQUIRED", "true")
	t.Setenv("GRIEVANCE_ESCALATION_STALE_FILED_THRESHOLD_HOURS", "12")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.AI.Required)
	assert.Equal(t, 12*60*60*1e9, float64(cfg.Escalation.StaleFiledThreshold))
}

func TestSignoffWindowDuration(t *testing.T) {
	cfg := &Config{Signoff: SignoffConfig{WindowHours: 72}}
	assert.Equal(t, 72*60*60*1e9, float64(cfg.SignoffWindowDuration()))
}
