package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradmatch/matcher/internal/config"
	"github.com/gradmatch/matcher/internal/db"
	"github.com/gradmatch/matcher/internal/distribution"
	"github.com/gradmatch/matcher/internal/embeddings"
	"github.com/gradmatch/matcher/internal/llm"
	"github.com/gradmatch/matcher/internal/observability"
	"github.com/gradmatch/matcher/internal/pipeline"
	"github.com/gradmatch/matcher/internal/prefilter"
	"github.com/gradmatch/matcher/internal/retrieval"
	"github.com/gradmatch/matcher/internal/scoring"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the matching pipeline for all users or a single user",
	Long: `Loads the active job pool and every user with preferences on file, then
for each user: semantic retrieval, pre-filtering with progressive relaxation,
LLM scoring with a deterministic rules fallback, dedup and tier-quota
distribution, and a single transactional persistence step.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runMatchCmd,
}

var (
	runConfigPath  string
	runDatabaseURL string
	runRedisURL    string
	runAPIKey      string
	runUserEmail   string
	runConcurrency int
	runAITimeout   int
	runRulesOnly   bool
	runVerbose     bool
)

func init() {
	runCommand.Flags().StringVar(&runConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	runCommand.Flags().StringVar(&runRedisURL, "redis-url", "", "Redis URL for the embedding cache (defaults to REDIS_URL env var)")
	runCommand.Flags().StringVar(&runAPIKey, "api-key", "", "Gemini API Key (defaults to GEMINI_API_KEY env var)")
	runCommand.Flags().StringVarP(&runUserEmail, "user", "u", "", "Run for a single user instead of the full batch")
	runCommand.Flags().IntVar(&runConcurrency, "concurrency", 0, "Users matched in parallel")
	runCommand.Flags().IntVar(&runAITimeout, "ai-timeout", 0, "Per-call LLM timeout in seconds")
	runCommand.Flags().BoolVar(&runRulesOnly, "rules-only", false, "Skip the LLM and score with rules alone")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runMatchCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (--db-url or DATABASE_URL)")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	runner, cleanup, err := buildRunner(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer cleanup()

	printer := observability.NewPrinter(os.Stdout)

	if cfg.UserEmail != "" {
		return runSingleUser(ctx, runner, database, printer, cfg)
	}

	summary, err := runner.RunBatch(ctx, database, database, cfg.Concurrency)
	if err != nil {
		return err
	}
	if cfg.Verbose {
		printer.PrintBatchSummary(summary)
	}
	return nil
}

func runSingleUser(ctx context.Context, runner *pipeline.Runner, database *db.DB, printer *observability.Printer, cfg *config.Config) error {
	prefs, err := database.GetUserPreferences(ctx, cfg.UserEmail)
	if err != nil {
		return err
	}
	if prefs == nil {
		return fmt.Errorf("no preferences on file for %s", cfg.UserEmail)
	}

	pool, err := database.ListActiveJobs(ctx, pipeline.PoolMaxAge)
	if err != nil {
		return err
	}

	result, err := runner.RunUser(ctx, prefs, pool)
	if err != nil {
		return err
	}
	printer.PrintUserResult(result)
	return nil
}

// loadRunConfig merges the config file, CLI flags, and environment, in
// ascending priority of flag over file over env.
func loadRunConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if runConfigPath != "" {
		loaded, err := config.LoadConfig(runConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if runDatabaseURL != "" {
		cfg.DatabaseURL = runDatabaseURL
	}
	if runRedisURL != "" {
		cfg.RedisURL = runRedisURL
	}
	if runAPIKey != "" {
		cfg.APIKey = runAPIKey
	}
	if runUserEmail != "" {
		cfg.UserEmail = runUserEmail
	}
	if runConcurrency > 0 {
		cfg.Concurrency = runConcurrency
	}
	if runAITimeout > 0 {
		cfg.AITimeoutSec = runAITimeout
	}
	if runRulesOnly {
		cfg.RulesOnly = true
	}
	if runVerbose {
		cfg.Verbose = true
	}
	cfg.FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildRunner assembles the pipeline collaborators. A missing API key or
// Redis URL degrades gracefully: rules-only scoring, no embedding cache.
func buildRunner(ctx context.Context, cfg *config.Config, database *db.DB) (*pipeline.Runner, func(), error) {
	var closers []func()
	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	var ai scoring.Strategy
	if !cfg.RulesOnly && cfg.APIKey != "" {
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		ai = scoring.NewAIScorer(client, llm.DefaultConfig(), time.Duration(cfg.AITimeoutSec)*time.Second)
	} else if !cfg.RulesOnly {
		log.Printf("[matcher] no API key configured, scoring with rules only")
	}

	retriever := buildRetriever(ctx, cfg, database, &closers)

	opts := pipeline.Options{
		Prefilter: prefilter.Config{
			MinCandidates:        cfg.MinCandidates,
			FreshnessDays:        cfg.FreshnessDays,
			WidenedFreshnessDays: cfg.WidenedFreshnessDays,
			LevelStep:            cfg.RelaxationStep,
		},
		Policy: distribution.Policy{
			FreeJobQuota:        cfg.FreeJobQuota,
			PremiumJobQuota:     cfg.PremiumJobQuota,
			FreeSendsPerWeek:    cfg.FreeSendsPerWeek,
			PremiumSendsPerWeek: cfg.PremiumSendsPerWeek,
			DiversityPercent:    cfg.DiversityPercent,
		},
	}

	return pipeline.NewRunner(database, retriever, ai, scoring.NewRuleScorer(), opts), cleanup, nil
}

// buildRetriever wires the semantic retrieval path when an API key is
// available. Without one, matching proceeds on filters alone.
func buildRetriever(ctx context.Context, cfg *config.Config, database *db.DB, closers *[]func()) *retrieval.Retriever {
	if cfg.APIKey == "" {
		return nil
	}

	provider, err := embeddings.NewGeminiProvider(ctx, cfg.APIKey, embeddings.DefaultEmbeddingModel)
	if err != nil {
		log.Printf("[matcher] embedding provider unavailable: %v", err)
		return nil
	}
	*closers = append(*closers, func() { _ = provider.Close() })

	var cache embeddings.Cache
	if cfg.RedisURL != "" {
		client, err := embeddings.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("[matcher] redis unavailable, embedding cache disabled: %v", err)
		} else {
			*closers = append(*closers, func() { _ = client.Close() })
			cache = embeddings.NewRedisCache(client)
		}
	}

	return retrieval.NewRetriever(embeddings.NewService(provider, cache), database)
}
