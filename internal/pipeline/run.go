// Package pipeline provides the high-level orchestration for a matching
// run: semantic retrieval, pre-filtering with relaxation, AI scoring with a
// deterministic rules fallback, distribution, and the single persistence
// step that writes matches, provenance, seen-jobs, and the send ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gradmatch/matcher/internal/distribution"
	"github.com/gradmatch/matcher/internal/prefilter"
	"github.com/gradmatch/matcher/internal/provenance"
	"github.com/gradmatch/matcher/internal/retrieval"
	"github.com/gradmatch/matcher/internal/scoring"
	"github.com/gradmatch/matcher/internal/types"
)

// RetrievalLimit caps how many semantically ranked jobs enter the
// pre-filter for one user.
const RetrievalLimit = 200

// Outcome summarizes how one user's run ended.
type Outcome string

const (
	OutcomeMatched      Outcome = "matched"
	OutcomeZeroMatch    Outcome = "zero_match"
	OutcomeQuotaReached Outcome = "quota_reached"
)

// Store is the persistence surface one matching run needs.
type Store interface {
	distribution.Store
	GetSeenHashes(ctx context.Context, userEmail string) (map[string]bool, error)
	RemainingSends(ctx context.Context, userEmail string, quota int, at time.Time) (int, error)
	InsertMatches(ctx context.Context, matches []types.Match, records []types.MatchProvenance) error
}

// UserResult reports what happened for one user.
type UserResult struct {
	UserEmail       string
	Outcome         Outcome
	Matches         []types.ScoredMatch
	Algorithm       types.MatchAlgorithm
	FallbackReason  string
	ErrorCategory   types.ErrorCategory
	RelaxationLevel int
	AccuracyScore   int
	CacheHit        bool
}

// Options carries the tunable matching policy. Zero-value fields use the
// documented defaults, so Options{} is a valid configuration.
type Options struct {
	Prefilter prefilter.Config
	Policy    distribution.Policy
}

// Runner executes matching runs against a fixed set of collaborators.
type Runner struct {
	store     Store
	retriever *retrieval.Retriever
	ai        scoring.Strategy
	rules     scoring.Strategy
	cfg       prefilter.Config
	policy    distribution.Policy

	// now is swappable for tests.
	now func() time.Time
}

// NewRunner constructs a Runner. The rules strategy must never fail; it is
// the floor under every AI outage.
func NewRunner(store Store, retriever *retrieval.Retriever, ai, rules scoring.Strategy, opts Options) *Runner {
	return &Runner{
		store:     store,
		retriever: retriever,
		ai:        ai,
		rules:     rules,
		cfg:       opts.Prefilter,
		policy:    opts.Policy,
		now:       time.Now,
	}
}

// RunUser produces and persists one user's match batch from the given job
// pool. Every returned error means nothing was persisted for this user;
// partial writes cannot happen because matches and provenance share one
// transaction and the seen/ledger commit only runs after it succeeds.
func (r *Runner) RunUser(ctx context.Context, prefs *types.UserPreferences, pool []types.Job) (*UserResult, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	result := &UserResult{UserEmail: prefs.Email}
	now := r.now()

	remaining, err := r.store.RemainingSends(ctx, prefs.Email, r.policy.SendQuota(prefs.Tier), now)
	if err != nil {
		return nil, fmt.Errorf("failed to check send quota for %s: %w", prefs.Email, err)
	}
	if remaining <= 0 {
		result.Outcome = OutcomeQuotaReached
		return result, nil
	}

	similarities, cacheHit := r.similarities(ctx, prefs, pool)
	result.CacheHit = cacheHit

	filtered := prefilter.SelectCandidates(prefs, pool, similarities, r.cfg, now)
	result.RelaxationLevel = filtered.RelaxationLevel
	result.AccuracyScore = prefilter.AccuracyScore(filtered.RelaxationLevel)
	if len(filtered.Candidates) == 0 {
		result.Outcome = OutcomeZeroMatch
		return result, nil
	}

	scored, stats, failure := r.score(ctx, prefs, filtered.Candidates)
	result.Algorithm = stats.Algorithm
	run := provenance.RunContext{Stats: stats, CacheHit: cacheHit}
	if failure != nil {
		run.FallbackReason, run.ErrorCategory = provenance.FromFailure(failure)
		result.FallbackReason = run.FallbackReason
		result.ErrorCategory = run.ErrorCategory
	}

	seen, err := r.store.GetSeenHashes(ctx, prefs.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load seen jobs for %s: %w", prefs.Email, err)
	}

	batch := r.policy.Select(scored, seen, prefs.Tier)
	result.Matches = batch
	if len(batch) == 0 {
		result.Outcome = OutcomeZeroMatch
		return result, nil
	}

	records := provenance.RecordAll(batch, run, now)
	rows := make([]types.Match, len(batch))
	for i, m := range batch {
		rows[i] = types.Match{
			UserEmail:   prefs.Email,
			JobHash:     m.Candidate.Job.JobHash,
			MatchScore:  m.MatchScore,
			MatchReason: m.MatchReason,
			CreatedAt:   now,
		}
	}
	if err := r.store.InsertMatches(ctx, rows, records); err != nil {
		return nil, fmt.Errorf("failed to persist matches for %s: %w", prefs.Email, err)
	}
	if err := distribution.Commit(ctx, r.store, prefs.Email, prefs.Tier, batch, now); err != nil {
		return nil, fmt.Errorf("failed to commit delivery for %s: %w", prefs.Email, err)
	}

	result.Outcome = OutcomeMatched
	return result, nil
}

// similarities runs semantic retrieval and flattens the ranking into a
// hash-to-similarity map for the pre-filter. A missing or failed embedding
// path degrades to an empty map; matching proceeds on filters alone.
func (r *Runner) similarities(ctx context.Context, prefs *types.UserPreferences, pool []types.Job) (map[string]float64, bool) {
	if r.retriever == nil {
		return nil, false
	}
	ranked, err := r.retriever.Candidates(ctx, prefs, pool, RetrievalLimit)
	if err != nil || len(ranked) == 0 {
		return nil, false
	}
	sims := make(map[string]float64, len(ranked))
	for _, rj := range ranked {
		sims[rj.Job.JobHash] = rj.Similarity
	}
	return sims, r.retriever.CacheHit()
}

// score tries the AI strategy and falls back to rules on any Failure. The
// returned failure is non-nil exactly when the fallback fired. On fallback
// the failed attempt's model, latency, and cost are carried into the stats
// so provenance records what the attempt actually spent.
func (r *Runner) score(ctx context.Context, prefs *types.UserPreferences, candidates []types.MatchCandidate) ([]types.ScoredMatch, scoring.Stats, *scoring.Failure) {
	if r.ai != nil {
		scored, aiStats, err := r.ai.Score(ctx, prefs, candidates)
		if err == nil {
			return scored, aiStats, nil
		}
		var failure *scoring.Failure
		if !errors.As(err, &failure) {
			failure = scoring.NewFailure(types.ErrorCategoryProviderError, err)
		}
		scored, stats, rulesErr := r.rules.Score(ctx, prefs, candidates)
		stats.Model = aiStats.Model
		stats.PromptVersion = aiStats.PromptVersion
		stats.Latency = aiStats.Latency
		stats.CostUSD = aiStats.CostUSD
		if rulesErr != nil {
			// The rule scorer has no failure modes; treat this as empty.
			return nil, stats, failure
		}
		return scored, stats, failure
	}

	scored, stats, _ := r.rules.Score(ctx, prefs, candidates)
	return scored, stats, nil
}
