package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var memodropsEnvVars = []string{
	"MEMODROPS_DAILY_PLAN_LIMIT",
	"MEMODROPS_PLAN_LOOKUP_CONCURRENCY",
	"MEMODROPS_PREVIEW_INTERVAL",
	"MEMODROPS_PREVIEW_RATE",
	"MEMODROPS_CACHE_TTL",
	"MEMODROPS_CACHE_REDIS_ADDR",
	"MEMODROPS_CACHE_REDIS_PASSWORD",
	"MEMODROPS_CACHE_REDIS_DB",
	"MEMODROPS_CACHE_REDIS_PREFIX",
}

func clearEnv(t *testing.T) {
	for _, key := range memodropsEnvVars {
		t.Setenv(key, "")
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, DefaultDailyPlanLimit, profile.DailyPlanLimit)
	assert.Equal(t, 4, profile.PlanLookupConcurrency)
	assert.Equal(t, time.Hour, profile.PreviewInterval)
	assert.Equal(t, 5.0, profile.PreviewRate)
	assert.Equal(t, 10*time.Minute, profile.CacheTTL)
	assert.Equal(t, "memodrops:", profile.CacheRedisPrefix)
	assert.False(t, profile.IsRedisEnabled())
}

func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEMODROPS_DAILY_PLAN_LIMIT", "45")
	t.Setenv("MEMODROPS_PLAN_LOOKUP_CONCURRENCY", "8")
	t.Setenv("MEMODROPS_PREVIEW_INTERVAL", "15m")
	t.Setenv("MEMODROPS_CACHE_REDIS_ADDR", "localhost:6379")
	t.Setenv("MEMODROPS_CACHE_REDIS_DB", "2")

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, 45, profile.DailyPlanLimit)
	assert.Equal(t, 8, profile.PlanLookupConcurrency)
	assert.Equal(t, 15*time.Minute, profile.PreviewInterval)
	assert.Equal(t, "localhost:6379", profile.CacheRedisAddr)
	assert.Equal(t, 2, profile.CacheRedisDB)
	assert.True(t, profile.IsRedisEnabled())
}

func TestProfileFromEnv_InvalidValuesKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEMODROPS_DAILY_PLAN_LIMIT", "thirty")
	t.Setenv("MEMODROPS_CACHE_TTL", "soon")

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, DefaultDailyPlanLimit, profile.DailyPlanLimit)
	assert.Equal(t, 10*time.Minute, profile.CacheTTL)
}

func TestProfileFromEnv_KeepsExplicitValues(t *testing.T) {
	clearEnv(t)

	profile := &Profile{DailyPlanLimit: 12, CacheRedisAddr: "cache:6379"}
	profile.FromEnv()

	assert.Equal(t, 12, profile.DailyPlanLimit)
	assert.Equal(t, "cache:6379", profile.CacheRedisAddr)
}

func TestProfileValidate(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	profile := &Profile{Mode: "unknown", Data: dir}
	profile.FromEnv()
	require.NoError(t, profile.Validate())

	assert.Equal(t, "demo", profile.Mode)
	assert.Equal(t, "sqlite", profile.Driver)
	assert.Equal(t, filepath.Join(dir, "memodrops_demo.db"), profile.DSN)
	assert.True(t, profile.IsDev())
}

func TestProfileValidate_KeepsPostgresDSN(t *testing.T) {
	clearEnv(t)

	profile := &Profile{Mode: "prod", Data: t.TempDir(), Driver: "postgres", DSN: "postgres://localhost/memodrops"}
	profile.FromEnv()
	require.NoError(t, profile.Validate())

	assert.Equal(t, "postgres://localhost/memodrops", profile.DSN)
	assert.False(t, profile.IsDev())
}

func TestProfileValidate_Errors(t *testing.T) {
	clearEnv(t)

	profile := &Profile{Mode: "dev", Data: filepath.Join(t.TempDir(), "missing")}
	profile.FromEnv()
	assert.Error(t, profile.Validate())

	profile = &Profile{Mode: "dev", Data: t.TempDir(), DailyPlanLimit: 101}
	assert.Error(t, profile.Validate())
}
