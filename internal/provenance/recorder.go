// Package provenance assembles the audit record attached to every
// persisted match. Every match gets exactly one record, whether it came
// from the AI strategy or the rules fallback.
package provenance

import (
	"time"

	"github.com/gradmatch/matcher/internal/scoring"
	"github.com/gradmatch/matcher/internal/types"
)

// RunContext carries the run-level facts shared by every record in one
// user's batch: which strategy ultimately produced the matches, why the
// fallback fired (if it did), and whether the profile embedding came from
// cache.
type RunContext struct {
	Stats          scoring.Stats
	FallbackReason string
	ErrorCategory  types.ErrorCategory
	RetryCount     int
	CacheHit       bool
}

// FromFailure builds the fallback portion of a RunContext out of an AI
// scoring failure.
func FromFailure(err *scoring.Failure) (reason string, category types.ErrorCategory) {
	if err == nil {
		return "", ""
	}
	return err.Error(), err.Category
}

// Record builds the provenance row for a single scored match.
func Record(match types.ScoredMatch, run RunContext, now time.Time) types.MatchProvenance {
	return types.MatchProvenance{
		UserEmail:       match.Candidate.UserEmail,
		JobHash:         match.Candidate.Job.JobHash,
		MatchAlgorithm:  run.Stats.Algorithm,
		AIModel:         run.Stats.Model,
		PromptVersion:   run.Stats.PromptVersion,
		AILatencyMS:     run.Stats.Latency.Milliseconds(),
		AICostUSD:       run.Stats.CostUSD,
		CacheHit:        run.CacheHit,
		FallbackReason:  run.FallbackReason,
		RetryCount:      run.RetryCount,
		ErrorCategory:   run.ErrorCategory,
		ConfidenceScore: match.Confidence,
		CreatedAt:       now,
	}
}

// RecordAll maps a full batch to provenance rows, index-aligned with the
// input so the two can be inserted together.
func RecordAll(matches []types.ScoredMatch, run RunContext, now time.Time) []types.MatchProvenance {
	records := make([]types.MatchProvenance, len(matches))
	for i, m := range matches {
		records[i] = Record(m, run, now)
	}
	return records
}
