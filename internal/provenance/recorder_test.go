package provenance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmatch/matcher/internal/scoring"
	"github.com/gradmatch/matcher/internal/types"
)

func sampleMatch(hash string, confidence float64) types.ScoredMatch {
	return types.ScoredMatch{
		Candidate: types.MatchCandidate{
			UserEmail: "jane@example.com",
			Job:       types.Job{JobHash: hash},
		},
		MatchScore: 82,
		Confidence: confidence,
	}
}

func TestRecord_AISuccess(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	run := RunContext{
		Stats: scoring.Stats{
			Algorithm:     types.AlgorithmAI,
			Model:         "gemini-2.5-flash-lite",
			PromptVersion: "score-free/v1",
			Latency:       1200 * time.Millisecond,
			CostUSD:       0.0005,
		},
		CacheHit: true,
	}

	rec := Record(sampleMatch("abc", 0.91), run, now)

	assert.Equal(t, "jane@example.com", rec.UserEmail)
	assert.Equal(t, "abc", rec.JobHash)
	assert.Equal(t, types.AlgorithmAI, rec.MatchAlgorithm)
	assert.Equal(t, "gemini-2.5-flash-lite", rec.AIModel)
	assert.Equal(t, int64(1200), rec.AILatencyMS)
	assert.True(t, rec.CacheHit)
	assert.Empty(t, rec.FallbackReason)
	assert.Empty(t, rec.ErrorCategory)
	assert.InDelta(t, 0.91, rec.ConfidenceScore, 1e-9)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestRecord_RulesFallbackCarriesFailure(t *testing.T) {
	failure := scoring.NewFailure(types.ErrorCategoryTimeout, errors.New("context deadline exceeded"))
	reason, category := FromFailure(failure)

	run := RunContext{
		Stats:          scoring.Stats{Algorithm: types.AlgorithmRules},
		FallbackReason: reason,
		ErrorCategory:  category,
	}
	rec := Record(sampleMatch("abc", 0.65), run, time.Now())

	assert.Equal(t, types.AlgorithmRules, rec.MatchAlgorithm)
	assert.Equal(t, types.ErrorCategoryTimeout, rec.ErrorCategory)
	assert.Contains(t, rec.FallbackReason, "timeout")
	assert.Empty(t, rec.AIModel)
}

func TestFromFailure_Nil(t *testing.T) {
	reason, category := FromFailure(nil)
	assert.Empty(t, reason)
	assert.Empty(t, category)
}

func TestRecordAll_IndexAligned(t *testing.T) {
	matches := []types.ScoredMatch{
		sampleMatch("a", 0.9),
		sampleMatch("b", 0.7),
	}
	run := RunContext{Stats: scoring.Stats{Algorithm: types.AlgorithmAI}}

	records := RecordAll(matches, run, time.Now())
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].JobHash)
	assert.Equal(t, "b", records[1].JobHash)
	assert.InDelta(t, 0.7, records[1].ConfidenceScore, 1e-9)
}
