package embeddings

import (
	"context"
	"fmt"
	"log"
)

// QueueItem is a pending embedding request claimed from the queue.
type QueueItem struct {
	JobHash  string
	Text     string
	Attempts int
}

// QueueStore is the persistence surface the worker drains. Claiming must be
// atomic so concurrent workers never process the same job_hash twice.
type QueueStore interface {
	// ClaimPending atomically moves up to limit pending items to
	// processing and returns them.
	ClaimPending(ctx context.Context, limit int) ([]QueueItem, error)
	// MarkProcessed completes an item.
	MarkProcessed(ctx context.Context, jobHash string) error
	// MarkFailed records a failure. When permanent is false the item
	// returns to pending for a later cycle.
	MarkFailed(ctx context.Context, jobHash, errMsg string, permanent bool) error
	// SaveJobEmbedding persists the produced vector for retrieval.
	SaveJobEmbedding(ctx context.Context, jobHash, model string, vec Vector) error
}

// WorkerConfig bounds one drain cycle.
type WorkerConfig struct {
	BatchSize   int // items claimed per cycle
	MaxAttempts int // attempts before an item is permanently failed
}

// DefaultWorkerConfig returns the standard cycle bounds.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{BatchSize: 100, MaxAttempts: 3}
}

// Worker drains the embedding queue in bounded batches: claim, embed,
// persist, mark. Each item ends up processed or failed-with-retry; nothing
// is silently dropped.
type Worker struct {
	store    QueueStore
	provider Provider
	cfg      WorkerConfig
}

// NewWorker constructs a Worker.
func NewWorker(store QueueStore, provider Provider, cfg WorkerConfig) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultWorkerConfig().BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultWorkerConfig().MaxAttempts
	}
	return &Worker{store: store, provider: provider, cfg: cfg}
}

// CycleResult summarizes one drain cycle.
type CycleResult struct {
	Claimed   int
	Processed int
	Retried   int
	Failed    int
}

// RunCycle claims one batch and processes it to completion. It returns an
// error only when the queue itself is unreachable; per-item embedding
// failures are recorded on the item and do not abort the cycle.
func (w *Worker) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult

	items, err := w.store.ClaimPending(ctx, w.cfg.BatchSize)
	if err != nil {
		return res, fmt.Errorf("claim pending embeddings: %w", err)
	}
	res.Claimed = len(items)
	if len(items) == 0 {
		return res, nil
	}

	log.Printf("[embed-worker] claimed %d items", len(items))

	// Status writes must land even when the cycle's context is cancelled;
	// otherwise a shutdown strands claimed items in processing.
	markCtx := context.WithoutCancel(ctx)

	for _, item := range items {
		if ctx.Err() != nil {
			// Shutting down: release unprocessed items back to pending.
			if err := w.store.MarkFailed(markCtx, item.JobHash, "worker cancelled", false); err != nil {
				log.Printf("[embed-worker] release %s: %v", item.JobHash, err)
			}
			res.Retried++
			continue
		}

		if err := w.processItem(ctx, item); err != nil {
			permanent := item.Attempts+1 >= w.cfg.MaxAttempts
			if markErr := w.store.MarkFailed(markCtx, item.JobHash, err.Error(), permanent); markErr != nil {
				log.Printf("[embed-worker] mark failed %s: %v", item.JobHash, markErr)
			}
			if permanent {
				res.Failed++
				log.Printf("[embed-worker] item %s permanently failed after %d attempts: %v",
					item.JobHash, item.Attempts+1, err)
			} else {
				res.Retried++
			}
			continue
		}

		if err := w.store.MarkProcessed(markCtx, item.JobHash); err != nil {
			return res, fmt.Errorf("mark processed %s: %w", item.JobHash, err)
		}
		res.Processed++
	}

	log.Printf("[embed-worker] cycle done: processed=%d retried=%d failed=%d",
		res.Processed, res.Retried, res.Failed)
	return res, nil
}

func (w *Worker) processItem(ctx context.Context, item QueueItem) error {
	vec, err := w.provider.Embed(ctx, item.Text)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if err := w.store.SaveJobEmbedding(ctx, item.JobHash, w.provider.Model(), vec); err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}
