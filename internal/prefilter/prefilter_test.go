package prefilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmatch/matcher/internal/types"
)

var now = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func prefs(cities ...string) *types.UserPreferences {
	return &types.UserPreferences{
		Email:        "jane@example.com",
		TargetCities: cities,
		CareerPath:   []string{"tech"},
		Tier:         types.TierFree,
	}
}

func techJob(hash, city string, ageDays int) types.Job {
	return types.Job{
		JobHash:    hash,
		Title:      "Graduate Engineer",
		City:       city,
		Categories: []string{"tech"},
		IsGraduate: true,
		IsActive:   true,
		Status:     types.JobStatusActive,
		CreatedAt:  now.AddDate(0, 0, -ageDays),
	}
}

func manyBerlinJobs(n int) []types.Job {
	jobs := make([]types.Job, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, techJob(string(rune('a'+i)), "Berlin", 1))
	}
	return jobs
}

func TestSelectCandidates_StrictPassSufficient(t *testing.T) {
	pool := manyBerlinJobs(12)
	res := SelectCandidates(prefs("Berlin"), pool, nil, DefaultConfig(), now)

	assert.Equal(t, 0, res.RelaxationLevel)
	assert.Len(t, res.Candidates, 12)
}

func TestSelectCandidates_RelaxesCityFirst(t *testing.T) {
	// 3 Berlin jobs, 10 Hamburg jobs: dropping the city constraint alone
	// reaches the minimum, so freshness and category remain strict.
	pool := []types.Job{
		techJob("b1", "Berlin", 1), techJob("b2", "Berlin", 1), techJob("b3", "Berlin", 1),
	}
	for i := 0; i < 10; i++ {
		pool = append(pool, techJob(string(rune('h'+i)), "Hamburg", 1))
	}
	// A stale job would only be admitted by the later freshness step.
	pool = append(pool, techJob("stale", "Berlin", 30))

	cfg := DefaultConfig()
	res := SelectCandidates(prefs("Berlin"), pool, nil, cfg, now)

	assert.Equal(t, cfg.LevelStep, res.RelaxationLevel)
	assert.Len(t, res.Candidates, 13)
	for _, c := range res.Candidates {
		assert.NotEqual(t, "stale", c.Job.JobHash)
	}
}

func TestSelectCandidates_ExhaustsAllSteps(t *testing.T) {
	// Only 2 matching jobs exist anywhere: every step fires and we return
	// what was found rather than erroring.
	pool := []types.Job{techJob("b1", "Berlin", 1), techJob("b2", "Berlin", 1)}
	cfg := DefaultConfig()

	res := SelectCandidates(prefs("Berlin"), pool, nil, cfg, now)

	assert.Equal(t, 3*cfg.LevelStep, res.RelaxationLevel)
	assert.Len(t, res.Candidates, 2)
}

func TestSelectCandidates_EmptyPoolReturnsEmpty(t *testing.T) {
	cfg := DefaultConfig()
	res := SelectCandidates(prefs("Berlin"), nil, nil, cfg, now)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 3*cfg.LevelStep, res.RelaxationLevel)
}

func TestSelectCandidates_EarlyCareerNeverRelaxed(t *testing.T) {
	senior := techJob("senior", "Berlin", 1)
	senior.IsGraduate = false
	senior.IsInternship = false

	res := SelectCandidates(prefs("Berlin"), []types.Job{senior}, nil, DefaultConfig(), now)
	assert.Empty(t, res.Candidates)
}

func TestSelectCandidates_InactiveNeverRelaxed(t *testing.T) {
	inactive := techJob("x", "Berlin", 1)
	inactive.Status = types.JobStatusExpired

	res := SelectCandidates(prefs("Berlin"), []types.Job{inactive}, nil, DefaultConfig(), now)
	assert.Empty(t, res.Candidates)
}

func TestSelectCandidates_Deterministic(t *testing.T) {
	pool := manyBerlinJobs(15)
	sims := map[string]float64{"a": 0.3, "b": 0.9, "c": 0.5}

	first := SelectCandidates(prefs("Berlin"), pool, sims, DefaultConfig(), now)
	second := SelectCandidates(prefs("Berlin"), pool, sims, DefaultConfig(), now)

	require.Equal(t, first.RelaxationLevel, second.RelaxationLevel)
	require.Equal(t, len(first.Candidates), len(second.Candidates))
	for i := range first.Candidates {
		assert.Equal(t, first.Candidates[i].Job.JobHash, second.Candidates[i].Job.JobHash)
	}

	// Highest similarity first
	assert.Equal(t, "b", first.Candidates[0].Job.JobHash)
}

func TestSelectCandidates_WildcardCategorySkipsCategoryFilter(t *testing.T) {
	salesJob := techJob("s1", "Berlin", 1)
	salesJob.Categories = []string{"sales"}
	p := prefs("Berlin")
	p.CareerPath = []string{"something unmapped"}

	res := SelectCandidates(p, []types.Job{salesJob}, nil, DefaultConfig(), now)
	require.Len(t, res.Candidates, 1)
}

func TestSelectCandidates_PartialConfigKeepsOtherDefaults(t *testing.T) {
	// Only the minimum is overridden: the default 14-day freshness window
	// must still apply, so the 30-day-old job needs the widen step.
	pool := []types.Job{techJob("fresh", "Berlin", 1), techJob("stale", "Berlin", 30)}
	cfg := Config{MinCandidates: 1}

	res := SelectCandidates(prefs("Berlin"), pool, nil, cfg, now)
	assert.Equal(t, 0, res.RelaxationLevel)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "fresh", res.Candidates[0].Job.JobHash)

	// Raising the minimum forces relaxation, which widens to the default
	// 42-day window and admits the stale job.
	cfg.MinCandidates = 2
	res = SelectCandidates(prefs("Berlin"), pool, nil, cfg, now)
	assert.Equal(t, 4, res.RelaxationLevel)
	assert.Len(t, res.Candidates, 2)
}

func TestAccuracyScore(t *testing.T) {
	assert.Equal(t, 100, AccuracyScore(0))
	assert.Equal(t, 94, AccuracyScore(2))
	assert.Equal(t, 82, AccuracyScore(6))
	assert.Equal(t, 70, AccuracyScore(10))
	assert.Equal(t, 70, AccuracyScore(50), "never below the 70 floor")

	// Non-increasing in relaxation level
	prev := 101
	for level := 0; level <= 20; level++ {
		score := AccuracyScore(level)
		assert.LessOrEqual(t, score, prev)
		prev = score
	}
}
