package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gradmatch/matcher/internal/types"
)

// DefaultConcurrency bounds how many users are matched at once. Each user
// costs at most one LLM call, so this also caps provider pressure.
const DefaultConcurrency = 4

// PoolMaxAge is how far back the batch reaches for jobs. The pre-filter
// applies the per-user freshness window inside this.
const PoolMaxAge = 60 * 24 * time.Hour

// BatchSummary aggregates one full batch run.
type BatchSummary struct {
	RunID        uuid.UUID
	Users        int
	Matched      int
	ZeroMatch    int
	QuotaReached int
	Failed       int
	TotalMatches int
	Fallbacks    int
	Duration     time.Duration
}

// UserLister loads the users a batch run iterates.
type UserLister interface {
	ListUsersWithPreferences(ctx context.Context) ([]types.UserPreferences, error)
}

// JobLister loads the job pool a batch run scores against.
type JobLister interface {
	ListActiveJobs(ctx context.Context, maxAge time.Duration) ([]types.Job, error)
}

// RunBatch matches every user against the current job pool. One user's
// failure never aborts the batch; it is logged, counted, and the run moves
// on. Returns an error only when the batch cannot start at all.
func (r *Runner) RunBatch(ctx context.Context, users UserLister, jobs JobLister, concurrency int) (*BatchSummary, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	runID := uuid.New()
	start := time.Now()

	pool, err := jobs.ListActiveJobs(ctx, PoolMaxAge)
	if err != nil {
		return nil, fmt.Errorf("failed to load job pool: %w", err)
	}
	userList, err := users.ListUsersWithPreferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	log.Printf("[pipeline] starting batch %s: %d users, %d jobs in pool", runID, len(userList), len(pool))

	summary := &BatchSummary{RunID: runID, Users: len(userList)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range userList {
		prefs := userList[i]
		g.Go(func() error {
			result, err := r.RunUser(gctx, &prefs, pool)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				log.Printf("[pipeline] user %s failed: %v", prefs.Email, err)
				return nil
			}
			switch result.Outcome {
			case OutcomeMatched:
				summary.Matched++
				summary.TotalMatches += len(result.Matches)
			case OutcomeZeroMatch:
				summary.ZeroMatch++
				log.Printf("[pipeline] user %s: no deliverable matches (relaxation level %d)",
					prefs.Email, result.RelaxationLevel)
			case OutcomeQuotaReached:
				summary.QuotaReached++
			}
			if result.FallbackReason != "" {
				summary.Fallbacks++
			}
			return nil
		})
	}

	// Worker funcs never return errors; Wait only observes ctx cancellation.
	if err := g.Wait(); err != nil {
		return summary, err
	}

	summary.Duration = time.Since(start)
	log.Printf("[pipeline] batch %s done in %s: %d matched, %d zero-match, %d quota-reached, %d failed, %d fallbacks",
		runID, summary.Duration.Round(time.Millisecond), summary.Matched, summary.ZeroMatch,
		summary.QuotaReached, summary.Failed, summary.Fallbacks)
	return summary, nil
}
