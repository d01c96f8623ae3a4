package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gradmatch/matcher/internal/config"
	"github.com/gradmatch/matcher/internal/db"
	"github.com/gradmatch/matcher/internal/embeddings"
)

var embedWorkerCommand = &cobra.Command{
	Use:   "embed-worker",
	Short: "Backfill and drain the job embedding queue",
	Long: `Enqueues active jobs that have no stored embedding, then drains the queue
in batches: each item is embedded via the provider and the vector persisted
for semantic retrieval. With --schedule the worker stays up and repeats on
the given cron expression; without it the queue is drained once and the
command exits.`,
	RunE: runEmbedWorkerCmd,
}

var (
	workerConfigPath  string
	workerDatabaseURL string
	workerAPIKey      string
	workerBatchSize   int
	workerSchedule    string
)

func init() {
	embedWorkerCommand.Flags().StringVar(&workerConfigPath, "config", "", "Path to config.json file")
	embedWorkerCommand.Flags().StringVar(&workerDatabaseURL, "db-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL env var)")
	embedWorkerCommand.Flags().StringVar(&workerAPIKey, "api-key", "", "Gemini API Key (defaults to GEMINI_API_KEY env var)")
	embedWorkerCommand.Flags().IntVar(&workerBatchSize, "batch-size", 0, "Queue items claimed per cycle")
	embedWorkerCommand.Flags().StringVar(&workerSchedule, "schedule", "", "Cron expression for periodic drains (e.g. \"*/15 * * * *\")")

	rootCmd.AddCommand(embedWorkerCommand)
}

func runEmbedWorkerCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg := &config.Config{}
	if workerConfigPath != "" {
		loaded, err := config.LoadConfig(workerConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if workerDatabaseURL != "" {
		cfg.DatabaseURL = workerDatabaseURL
	}
	if workerAPIKey != "" {
		cfg.APIKey = workerAPIKey
	}
	if workerBatchSize > 0 {
		cfg.WorkerBatchSize = workerBatchSize
	}
	if workerSchedule != "" {
		cfg.WorkerSchedule = workerSchedule
	}
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required (--db-url or DATABASE_URL)")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required (--api-key or GEMINI_API_KEY)")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	provider, err := embeddings.NewGeminiProvider(ctx, cfg.APIKey, embeddings.DefaultEmbeddingModel)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	defer func() { _ = provider.Close() }()

	worker := embeddings.NewWorker(database, provider, embeddings.WorkerConfig{
		BatchSize: cfg.WorkerBatchSize,
	})

	if cfg.WorkerSchedule == "" {
		return drainQueue(ctx, database, worker)
	}
	return runScheduled(ctx, database, worker, cfg.WorkerSchedule)
}

// drainQueue backfills missing embeddings and runs cycles until the queue
// is empty.
func drainQueue(ctx context.Context, database *db.DB, worker *embeddings.Worker) error {
	enqueued, err := database.EnqueueMissing(ctx)
	if err != nil {
		return err
	}
	if enqueued > 0 {
		log.Printf("[worker] enqueued %d jobs missing embeddings", enqueued)
	}

	for {
		result, err := worker.RunCycle(ctx)
		if err != nil {
			return err
		}
		if result.Claimed == 0 {
			log.Printf("[worker] queue drained")
			return nil
		}
		log.Printf("[worker] cycle: %d claimed, %d processed, %d retried, %d failed",
			result.Claimed, result.Processed, result.Retried, result.Failed)
	}
}

// runScheduled drains the queue on a cron schedule until interrupted.
func runScheduled(ctx context.Context, database *db.DB, worker *embeddings.Worker, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if err := drainQueue(ctx, database, worker); err != nil {
			log.Printf("[worker] drain failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	log.Printf("[worker] running on schedule %q", schedule)
	c.Start()
	defer c.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("[worker] shutting down")
	return nil
}
