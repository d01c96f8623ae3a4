package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmatch/matcher/internal/types"
)

func testPrefs() *types.UserPreferences {
	return &types.UserPreferences{
		Email:        "jane@example.com",
		TargetCities: []string{"Berlin"},
		CareerPath:   []string{"tech"},
		Skills:       []string{"Go", "Python"},
		Tier:         types.TierFree,
	}
}

func candidate(hash, title, city string, cats ...string) types.MatchCandidate {
	return types.MatchCandidate{
		UserEmail: "jane@example.com",
		Job: types.Job{
			JobHash:    hash,
			Title:      title,
			Company:    "Acme",
			City:       city,
			Categories: cats,
			IsGraduate: true,
			IsActive:   true,
			Status:     types.JobStatusActive,
			CreatedAt:  time.Now(),
		},
	}
}

func TestRuleScorer_PerfectCandidateBeatsWeakOne(t *testing.T) {
	scorer := NewRuleScorer()
	strong := candidate("strong", "Go Graduate Engineer", "Berlin", "tech")
	weak := candidate("weak", "Barista", "Lisbon", "operations")

	matches, stats, err := scorer.Score(context.Background(), testPrefs(), []types.MatchCandidate{weak, strong})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, types.AlgorithmRules, stats.Algorithm)
	assert.Equal(t, "strong", matches[0].Candidate.Job.JobHash)
	assert.Greater(t, matches[0].MatchScore, matches[1].MatchScore)
	assert.Equal(t, matches[0].MatchScore, matches[0].Breakdown.Overall)
}

func TestRuleScorer_Idempotent(t *testing.T) {
	scorer := NewRuleScorer()
	candidates := []types.MatchCandidate{
		candidate("a", "Go Engineer", "Berlin", "tech"),
		candidate("b", "Data Analyst", "Munich", "data"),
		candidate("c", "Python Developer", "Berlin", "tech"),
	}

	first, _, err := scorer.Score(context.Background(), testPrefs(), candidates)
	require.NoError(t, err)
	second, _, err := scorer.Score(context.Background(), testPrefs(), candidates)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Candidate.Job.JobHash, second[i].Candidate.Job.JobHash)
		assert.Equal(t, first[i].MatchScore, second[i].MatchScore)
		assert.Equal(t, first[i].MatchReason, second[i].MatchReason)
	}
}

func TestRuleScorer_NeverFailsAndNeverEmptyOnCandidates(t *testing.T) {
	scorer := NewRuleScorer()
	matches, _, err := scorer.Score(context.Background(), testPrefs(), []types.MatchCandidate{
		candidate("only", "Something Unrelated", "Nowhere", "people"),
	})
	require.NoError(t, err)
	assert.Len(t, matches, 1, "rule scorer scores every candidate")
	assert.NotEmpty(t, matches[0].MatchReason)
}

func TestRuleScorer_ScoresWithinRange(t *testing.T) {
	scorer := NewRuleScorer()
	matches, _, err := scorer.Score(context.Background(), testPrefs(), []types.MatchCandidate{
		candidate("a", "Go Python Graduate Engineer", "Berlin", "tech", "data"),
	})
	require.NoError(t, err)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.MatchScore, 0)
		assert.LessOrEqual(t, m.MatchScore, 100)
	}
}

func TestRuleScorer_WildcardCareerPathGetsPartialCategoryCredit(t *testing.T) {
	prefs := testPrefs()
	prefs.CareerPath = []string{"unmapped nonsense"}
	scorer := NewRuleScorer()

	matches, _, err := scorer.Score(context.Background(), prefs, []types.MatchCandidate{
		candidate("a", "Graduate Scheme", "Berlin", "sales"),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Greater(t, matches[0].MatchScore, 0)
}
