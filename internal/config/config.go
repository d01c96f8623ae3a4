// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Connections
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	RedisURL    string `json:"redis_url,omitempty"`    // Redis URL for the embedding cache
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key

	// Matching behavior
	Concurrency  int    `json:"concurrency,omitempty"`    // Users matched in parallel
	AITimeoutSec int    `json:"ai_timeout_sec,omitempty"` // Per-call LLM timeout in seconds
	RulesOnly    bool   `json:"rules_only,omitempty"`     // Skip the LLM entirely
	UserEmail    string `json:"user_email,omitempty"`     // Restrict a run to one user

	// Candidate selection policy. Zero values use the built-in defaults.
	MinCandidates        int `json:"min_candidates,omitempty"`         // Relax until at least this many candidates survive
	RelaxationStep       int `json:"relaxation_step,omitempty"`        // Relaxation level increment per step
	FreshnessDays        int `json:"freshness_days,omitempty"`         // Strict posting-age window
	WidenedFreshnessDays int `json:"widened_freshness_days,omitempty"` // Window after the widen-freshness step

	// Distribution policy. Zero values use the built-in defaults.
	FreeJobQuota        int `json:"free_job_quota,omitempty"`         // Matches per batch, free tier
	PremiumJobQuota     int `json:"premium_job_quota,omitempty"`      // Matches per batch, premium tier
	FreeSendsPerWeek    int `json:"free_sends_per_week,omitempty"`    // Batches per week, free tier
	PremiumSendsPerWeek int `json:"premium_sends_per_week,omitempty"` // Batches per week, premium tier
	DiversityPercent    int `json:"diversity_percent,omitempty"`      // Max share of a batch per city or category

	// Embedding worker
	WorkerBatchSize int    `json:"worker_batch_size,omitempty"` // Queue items claimed per cycle
	WorkerSchedule  string `json:"worker_schedule,omitempty"`   // Cron expression for periodic drains

	// Output
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.AITimeoutSec < 0 {
		return fmt.Errorf("config error: 'ai_timeout_sec' must be non-negative")
	}
	if c.WorkerBatchSize < 0 {
		return fmt.Errorf("config error: 'worker_batch_size' must be non-negative")
	}
	for name, v := range map[string]int{
		"min_candidates":         c.MinCandidates,
		"relaxation_step":        c.RelaxationStep,
		"freshness_days":         c.FreshnessDays,
		"widened_freshness_days": c.WidenedFreshnessDays,
		"free_job_quota":         c.FreeJobQuota,
		"premium_job_quota":      c.PremiumJobQuota,
		"free_sends_per_week":    c.FreeSendsPerWeek,
		"premium_sends_per_week": c.PremiumSendsPerWeek,
	} {
		if v < 0 {
			return fmt.Errorf("config error: '%s' must be non-negative", name)
		}
	}
	if c.DiversityPercent < 0 || c.DiversityPercent > 100 {
		return fmt.Errorf("config error: 'diversity_percent' must be between 0 and 100")
	}
	return nil
}

// FromEnv fills unset connection fields from the environment. Flag and
// config-file values win over env vars.
func (c *Config) FromEnv() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}
