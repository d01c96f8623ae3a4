package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gradmatch/matcher/internal/categories"
	"github.com/gradmatch/matcher/internal/types"
)

// Point weights for the rule-based composite. They sum to 100 so a perfect
// candidate scores exactly 100.
const (
	categoryWeight    = 30
	cityWeight        = 20
	skillsWeight      = 25
	earlyCareerWeight = 10
	companyWeight     = 15
)

// ruleConfidence is the confidence attached to rule-scored matches. The
// rule engine is deterministic but its signals are coarser than the LLM's,
// so confidence is fixed below the AI ceiling.
const ruleConfidence = 0.65

// RuleScorer implements Strategy with a deterministic point system. It has
// no external dependencies and never fails, which makes it both the
// cost-sensitive default and the safety net when AI scoring fails.
type RuleScorer struct{}

// NewRuleScorer constructs a RuleScorer.
func NewRuleScorer() *RuleScorer {
	return &RuleScorer{}
}

// Name identifies the strategy in provenance.
func (s *RuleScorer) Name() types.MatchAlgorithm {
	return types.AlgorithmRules
}

// Score computes composite scores for all candidates. Identical
// (profile, candidate) pairs always produce identical scores, and the
// output order is deterministic: score descending, then job hash.
func (s *RuleScorer) Score(_ context.Context, prefs *types.UserPreferences, candidates []types.MatchCandidate) ([]types.ScoredMatch, Stats, error) {
	stats := Stats{Algorithm: types.AlgorithmRules}

	wanted := categories.MapCareerPath(prefs.CareerPath)
	matches := make([]types.ScoredMatch, 0, len(candidates))
	for _, candidate := range candidates {
		matches = append(matches, scoreCandidate(prefs, candidate, wanted))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].MatchScore != matches[j].MatchScore {
			return matches[i].MatchScore > matches[j].MatchScore
		}
		return matches[i].Candidate.Job.JobHash < matches[j].Candidate.Job.JobHash
	})

	return matches, stats, nil
}

func scoreCandidate(prefs *types.UserPreferences, candidate types.MatchCandidate, wanted []string) types.ScoredMatch {
	job := candidate.Job

	categoryPts := 0
	if categories.IsWildcard(wanted) {
		// No category signal available; award half credit rather than
		// zeroing every candidate.
		categoryPts = categoryWeight / 2
	} else {
		overlap := 0
		for _, cat := range wanted {
			if job.HasCategory(cat) {
				overlap++
			}
		}
		if overlap > 0 {
			categoryPts = categoryWeight * overlap / len(wanted)
			if categoryPts > categoryWeight {
				categoryPts = categoryWeight
			}
		}
	}

	cityPts := 0
	if prefs.WantsCity(job.City) {
		cityPts = cityWeight
	}

	skillsPts := skillsOverlapPoints(prefs.Skills, &job)

	earlyPts := 0
	if job.IsEarlyCareer() {
		earlyPts = earlyCareerWeight
	}

	companyPts := companyAlignmentPoints(prefs, &job)

	total := types.ClampScore(categoryPts + cityPts + skillsPts + earlyPts + companyPts)

	return types.ScoredMatch{
		Candidate:   candidate,
		MatchScore:  total,
		Confidence:  ruleConfidence,
		MatchReason: ruleReason(categoryPts, cityPts, skillsPts, &job),
		Breakdown: types.ScoreBreakdown{
			Skills:     scaleTo100(skillsPts, skillsWeight),
			Experience: scaleTo100(earlyPts, earlyCareerWeight),
			Location:   scaleTo100(cityPts, cityWeight),
			Company:    scaleTo100(categoryPts+companyPts, categoryWeight+companyWeight),
			Overall:    total,
		},
	}
}

// skillsOverlapPoints awards points for user skills appearing in the job
// title, scaled by how many matched.
func skillsOverlapPoints(skills []string, job *types.Job) int {
	if len(skills) == 0 {
		return 0
	}
	title := strings.ToLower(job.Title)
	matched := 0
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill != "" && strings.Contains(title, skill) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	pts := skillsWeight * matched / len(skills)
	if pts < skillsWeight/5 {
		pts = skillsWeight / 5 // any overlap is worth at least a fifth
	}
	return pts
}

// companyAlignmentPoints awards points for industry overlap with the job's
// categories. Company-size preference has no per-job signal in the
// normalized record, so industries carry the full weight.
func companyAlignmentPoints(prefs *types.UserPreferences, job *types.Job) int {
	if len(prefs.Industries) == 0 {
		return companyWeight / 3 // neutral credit when no preference declared
	}
	for _, industry := range prefs.Industries {
		if job.HasCategory(strings.ToLower(strings.TrimSpace(industry))) {
			return companyWeight
		}
	}
	return 0
}

func scaleTo100(points, weight int) int {
	if weight == 0 {
		return 0
	}
	return types.ClampScore(points * 100 / weight)
}

func ruleReason(categoryPts, cityPts, skillsPts int, job *types.Job) string {
	var parts []string
	if categoryPts > 0 {
		parts = append(parts, "career path matches the job category")
	}
	if cityPts > 0 {
		parts = append(parts, fmt.Sprintf("located in %s, one of your target cities", job.City))
	}
	if skillsPts > 0 {
		parts = append(parts, "your skills appear in the role")
	}
	if job.IsInternship {
		parts = append(parts, "internship position")
	} else if job.IsGraduate {
		parts = append(parts, "graduate position")
	}
	if len(parts) == 0 {
		return "Broad match across your preferences"
	}
	reason := strings.Join(parts, "; ")
	return strings.ToUpper(reason[:1]) + reason[1:]
}
