// Package prefilter applies hard candidate constraints with a deterministic
// relaxation protocol when strict filtering yields too few jobs.
package prefilter

import (
	"sort"
	"time"

	"github.com/gradmatch/matcher/internal/categories"
	"github.com/gradmatch/matcher/internal/types"
)

// Config holds the relaxation policy. The original service hardcoded these;
// here they are explicit configuration.
type Config struct {
	MinCandidates        int // relax until at least this many survive
	FreshnessDays        int // strict posting-age window
	WidenedFreshnessDays int // window after the widen-freshness step
	LevelStep            int // relaxation level increment per step
}

// DefaultConfig returns the standard relaxation policy.
func DefaultConfig() Config {
	return Config{
		MinCandidates:        10,
		FreshnessDays:        14,
		WidenedFreshnessDays: 42,
		LevelStep:            2,
	}
}

// withDefaults fills each zero field independently, so a Config setting
// only one knob keeps the defaults for the rest.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinCandidates <= 0 {
		c.MinCandidates = d.MinCandidates
	}
	if c.FreshnessDays <= 0 {
		c.FreshnessDays = d.FreshnessDays
	}
	if c.WidenedFreshnessDays <= 0 {
		c.WidenedFreshnessDays = d.WidenedFreshnessDays
	}
	if c.LevelStep <= 0 {
		c.LevelStep = d.LevelStep
	}
	return c
}

// Result is the outcome of candidate selection for one user.
type Result struct {
	Candidates      []types.MatchCandidate
	RelaxationLevel int
}

// constraints is the mutable filter state the relaxation steps loosen.
type constraints struct {
	requireCity     bool
	requireCategory bool
	freshnessDays   int
}

// relaxStep loosens one constraint. Steps run in a fixed order so identical
// inputs always relax identically.
type relaxStep func(c *constraints, cfg Config)

// Relaxation order: drop city, widen freshness, drop category. Early-career
// and active/status checks are never relaxed.
var relaxSteps = []relaxStep{
	func(c *constraints, _ Config) { c.requireCity = false },
	func(c *constraints, cfg Config) { c.freshnessDays = cfg.WidenedFreshnessDays },
	func(c *constraints, _ Config) { c.requireCategory = false },
}

// SelectCandidates applies the strict filter pass and then relaxes in order
// until cfg.MinCandidates survive or all steps are exhausted. The returned
// relaxation level is cfg.LevelStep times the number of steps applied.
// similarities carries the semantic retrieval signal by job_hash and may be
// empty or nil.
func SelectCandidates(prefs *types.UserPreferences, pool []types.Job, similarities map[string]float64, cfg Config, now time.Time) Result {
	cfg = cfg.withDefaults()

	wanted := categories.MapCareerPath(prefs.CareerPath)
	cons := constraints{
		requireCity:     true,
		requireCategory: !categories.IsWildcard(wanted),
		freshnessDays:   cfg.FreshnessDays,
	}

	level := 0
	matched := filterPool(prefs, pool, wanted, cons, now)
	for _, step := range relaxSteps {
		if len(matched) >= cfg.MinCandidates {
			break
		}
		step(&cons, cfg)
		level += cfg.LevelStep
		matched = filterPool(prefs, pool, wanted, cons, now)
	}

	candidates := make([]types.MatchCandidate, 0, len(matched))
	for _, job := range matched {
		candidates = append(candidates, types.MatchCandidate{
			Job:             job,
			UserEmail:       prefs.Email,
			Similarity:      similarities[job.JobHash],
			RelaxationLevel: level,
		})
	}

	sortCandidates(candidates)
	return Result{Candidates: candidates, RelaxationLevel: level}
}

func filterPool(prefs *types.UserPreferences, pool []types.Job, wanted []string, cons constraints, now time.Time) []types.Job {
	cutoff := now.AddDate(0, 0, -cons.freshnessDays)

	var out []types.Job
	for _, job := range pool {
		if !job.IsCandidate() || !job.IsEarlyCareer() {
			continue
		}
		if job.CreatedAt.Before(cutoff) {
			continue
		}
		if cons.requireCity && !prefs.WantsCity(job.City) {
			continue
		}
		if cons.requireCategory && !overlapsCategories(&job, wanted) {
			continue
		}
		out = append(out, job)
	}
	return out
}

func overlapsCategories(job *types.Job, wanted []string) bool {
	for _, cat := range wanted {
		if job.HasCategory(cat) {
			return true
		}
	}
	return false
}

// sortCandidates orders by similarity descending, then recency, then hash,
// so a run over identical inputs is fully reproducible.
func sortCandidates(candidates []types.MatchCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if !candidates[i].Job.CreatedAt.Equal(candidates[j].Job.CreatedAt) {
			return candidates[i].Job.CreatedAt.After(candidates[j].Job.CreatedAt)
		}
		return candidates[i].Job.JobHash < candidates[j].Job.JobHash
	})
}

// AccuracyScore maps a relaxation level to the user-facing accuracy
// percentage. Full relaxation degrades displayed confidence but never below
// the 70 floor.
func AccuracyScore(relaxationLevel int) int {
	score := 100 - relaxationLevel*3
	if score < 70 {
		return 70
	}
	return score
}
