package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ACTION_TIMEOUT", "")
	t.Setenv("NOTIFY_WORKERS", "")
	t.Setenv("REQUIRE_DISMISSAL_NOTES", "")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.ActionTimeout)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.True(t, cfg.RequireDismissalNotes)
	assert.Equal(t, "8080", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACTION_TIMEOUT", "3s")
	t.Setenv("NOTIFY_WORKERS", "9")
	t.Setenv("REQUIRE_DISMISSAL_NOTES", "false")
	t.Setenv("LOCK_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 3*time.Second, cfg.ActionTimeout)
	assert.Equal(t, 9, cfg.NotifyWorkers)
	assert.False(t, cfg.RequireDismissalNotes)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
}

func TestValidateReportsMissingKeys(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "PLATFORM_API_URL")

	cfg = &Config{JWTSecret: "s", DBPassword: "p", PlatformAPIURL: "http://platform"}
	assert.NoError(t, cfg.Validate())
}

func TestAdminIDs(t *testing.T) {
	cfg := &Config{AdminUserIDs: " a1, ,b2 "}
	assert.Equal(t, []string{"a1", "b2"}, cfg.AdminIDs())
	assert.Nil(t, (&Config{}).AdminIDs())
}
