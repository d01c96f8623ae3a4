package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gradmatch/matcher/internal/llm"
	"github.com/gradmatch/matcher/internal/types"
	"github.com/gradmatch/matcher/schemas"
)

// DefaultAITimeout bounds one scoring call. On expiry the run falls back to
// rules; there is no retry loop.
const DefaultAITimeout = 45 * time.Second

// aiResponseItem mirrors one element of the structured LLM response.
type aiResponseItem struct {
	JobIndex        int          `json:"jobIndex"`
	MatchScore      float64      `json:"matchScore"`
	ConfidenceScore float64      `json:"confidenceScore"`
	MatchReason     string       `json:"matchReason"`
	ScoreBreakdown  *aiBreakdown `json:"scoreBreakdown,omitempty"`
}

type aiBreakdown struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Location   float64 `json:"location"`
	Company    float64 `json:"company"`
	Overall    float64 `json:"overall"`
}

// AIScorer implements Strategy on an LLM client with a tier-specific prompt
// and a strict output schema. Malformed entries are dropped individually;
// an unusable response as a whole returns a Failure so the caller can fall
// back to rules.
type AIScorer struct {
	client    llm.Client
	llmConfig *llm.Config
	timeout   time.Duration

	itemSchema string
}

// NewAIScorer constructs an AIScorer. timeout <= 0 uses DefaultAITimeout.
func NewAIScorer(client llm.Client, llmConfig *llm.Config, timeout time.Duration) *AIScorer {
	if llmConfig == nil {
		llmConfig = llm.DefaultConfig()
	}
	if timeout <= 0 {
		timeout = DefaultAITimeout
	}
	return &AIScorer{
		client:     client,
		llmConfig:  llmConfig,
		timeout:    timeout,
		itemSchema: schemas.MatchResponseItem(),
	}
}

// Name identifies the strategy in provenance.
func (s *AIScorer) Name() types.MatchAlgorithm {
	return types.AlgorithmAI
}

// Score builds the tier prompt, calls the LLM under a hard timeout, and
// parses the structured response. Returns a *Failure error on timeout,
// provider error, or a response with no salvageable entries.
func (s *AIScorer) Score(ctx context.Context, prefs *types.UserPreferences, candidates []types.MatchCandidate) ([]types.ScoredMatch, Stats, error) {
	builder := BuilderForTier(prefs.Tier)
	stats := Stats{
		Algorithm:     types.AlgorithmAI,
		Model:         s.client.GetModel(builder.ModelTier()),
		PromptVersion: builder.Version(),
	}

	if len(candidates) == 0 {
		return nil, stats, nil
	}

	prompt := builder.BuildPrompt(prefs, candidates)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.client.GenerateJSON(callCtx, prompt, builder.ModelTier())
	stats.Latency = time.Since(start)
	stats.CostUSD = s.llmConfig.CostForTier(builder.ModelTier())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return nil, stats, NewFailure(types.ErrorCategoryTimeout, err)
		}
		return nil, stats, NewFailure(types.ErrorCategoryProviderError, err)
	}

	matches, err := s.parseResponse(raw, candidates, builder.MatchCount())
	if err != nil {
		return nil, stats, err
	}
	return matches, stats, nil
}

// parseResponse decodes and validates the LLM output. Entries failing the
// item schema or referencing a candidate index that does not exist are
// dropped; only a response with nothing salvageable is a Failure.
func (s *AIScorer) parseResponse(raw string, candidates []types.MatchCandidate, maxCount int) ([]types.ScoredMatch, error) {
	raw = llm.CleanJSONBlock(raw)
	if raw == "" {
		return nil, NewFailure(types.ErrorCategoryEmptyResponse, fmt.Errorf("empty response body"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, NewFailure(types.ErrorCategorySchemaViolation, fmt.Errorf("response is not a JSON array: %w", err))
	}
	if len(items) == 0 {
		return nil, NewFailure(types.ErrorCategoryEmptyResponse, fmt.Errorf("response array is empty"))
	}

	seen := make(map[int]bool)
	var matches []types.ScoredMatch
	for _, rawItem := range items {
		if len(matches) >= maxCount {
			break
		}

		if err := schemas.ValidateJSONString(s.itemSchema, string(rawItem)); err != nil {
			continue
		}

		var item aiResponseItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			continue
		}
		if item.JobIndex < 0 || item.JobIndex >= len(candidates) || seen[item.JobIndex] {
			continue
		}
		seen[item.JobIndex] = true

		matches = append(matches, types.ScoredMatch{
			Candidate:   candidates[item.JobIndex],
			MatchScore:  types.ClampScore(int(item.MatchScore)),
			Confidence:  types.ClampConfidence(item.ConfidenceScore),
			MatchReason: item.MatchReason,
			Breakdown:   breakdownFromItem(&item),
		})
	}

	if len(matches) == 0 {
		return nil, NewFailure(types.ErrorCategorySchemaViolation, fmt.Errorf("no valid entries in %d-element response", len(items)))
	}
	return matches, nil
}

func breakdownFromItem(item *aiResponseItem) types.ScoreBreakdown {
	if item.ScoreBreakdown == nil {
		score := types.ClampScore(int(item.MatchScore))
		return types.ScoreBreakdown{Overall: score}
	}
	return types.ScoreBreakdown{
		Skills:     types.ClampScore(int(item.ScoreBreakdown.Skills)),
		Experience: types.ClampScore(int(item.ScoreBreakdown.Experience)),
		Location:   types.ClampScore(int(item.ScoreBreakdown.Location)),
		Company:    types.ClampScore(int(item.ScoreBreakdown.Company)),
		Overall:    types.ClampScore(int(item.ScoreBreakdown.Overall)),
	}
}
