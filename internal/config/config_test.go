package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"database_url": "postgres://localhost/matcher",
		"redis_url": "redis://localhost:6379/0",
		"concurrency": 8,
		"ai_timeout_sec": 30,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "postgres://localhost/matcher", cfg.DatabaseURL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 30, cfg.AITimeoutSec)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_PolicyFields(t *testing.T) {
	content := `{
		"min_candidates": 5,
		"relaxation_step": 1,
		"freshness_days": 7,
		"widened_freshness_days": 21,
		"free_job_quota": 3,
		"premium_job_quota": 20,
		"free_sends_per_week": 2,
		"premium_sends_per_week": 5,
		"diversity_percent": 40
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.MinCandidates)
	assert.Equal(t, 1, cfg.RelaxationStep)
	assert.Equal(t, 7, cfg.FreshnessDays)
	assert.Equal(t, 21, cfg.WidenedFreshnessDays)
	assert.Equal(t, 3, cfg.FreeJobQuota)
	assert.Equal(t, 20, cfg.PremiumJobQuota)
	assert.Equal(t, 2, cfg.FreeSendsPerWeek)
	assert.Equal(t, 5, cfg.PremiumSendsPerWeek)
	assert.Equal(t, 40, cfg.DiversityPercent)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{Concurrency: 4, AITimeoutSec: 45}).Validate())
	assert.Error(t, (&Config{Concurrency: -1}).Validate())
	assert.Error(t, (&Config{AITimeoutSec: -1}).Validate())
	assert.Error(t, (&Config{WorkerBatchSize: -1}).Validate())
	assert.Error(t, (&Config{MinCandidates: -1}).Validate())
	assert.Error(t, (&Config{FreeJobQuota: -1}).Validate())
	assert.Error(t, (&Config{PremiumSendsPerWeek: -2}).Validate())
	assert.Error(t, (&Config{DiversityPercent: 101}).Validate())
	assert.NoError(t, (&Config{DiversityPercent: 60}).Validate())
}

func TestFromEnv_FlagsWin(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg := &Config{DatabaseURL: "postgres://flag/db"}
	cfg.FromEnv()

	assert.Equal(t, "postgres://flag/db", cfg.DatabaseURL)
	assert.Equal(t, "env-key", cfg.APIKey)
}
