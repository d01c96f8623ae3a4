// Package scoring turns match candidates into scored matches, either via an
// LLM or a deterministic rule engine.
package scoring

import (
	"context"
	"fmt"
	"time"

	"github.com/gradmatch/matcher/internal/types"
)

// Stats carries the instrumentation of one scoring attempt for provenance.
type Stats struct {
	Algorithm     types.MatchAlgorithm
	Model         string
	PromptVersion string
	Latency       time.Duration
	CostUSD       float64
}

// Strategy scores a candidate set for a user. Implementations must not
// mutate the candidates.
type Strategy interface {
	Score(ctx context.Context, prefs *types.UserPreferences, candidates []types.MatchCandidate) ([]types.ScoredMatch, Stats, error)
	Name() types.MatchAlgorithm
}

// Failure is the typed error an AI scoring attempt returns. Its category is
// recorded in provenance and drives the fallback decision.
type Failure struct {
	Category types.ErrorCategory
	Cause    error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("ai scoring failed (%s): %v", f.Category, f.Cause)
	}
	return fmt.Sprintf("ai scoring failed (%s)", f.Category)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// NewFailure builds a Failure.
func NewFailure(category types.ErrorCategory, cause error) *Failure {
	return &Failure{Category: category, Cause: cause}
}
