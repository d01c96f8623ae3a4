package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gradmatch/matcher/internal/llm"
	"github.com/gradmatch/matcher/internal/prompts"
	"github.com/gradmatch/matcher/internal/types"
)

// PromptBuilder is the tier-specific prompt variant. The set is closed:
// one builder per service tier.
type PromptBuilder interface {
	// BuildPrompt renders the scoring prompt for the candidate list.
	BuildPrompt(prefs *types.UserPreferences, candidates []types.MatchCandidate) string
	// MatchCount is the number of results the prompt asks for.
	MatchCount() int
	// ModelTier selects which model the prompt runs on.
	ModelTier() llm.ModelTier
	// Version identifies the prompt template for provenance.
	Version() string
}

// BuilderForTier returns the prompt builder for a service tier.
func BuilderForTier(tier types.Tier) PromptBuilder {
	if tier == types.TierPremium {
		return premiumPrompt{}
	}
	return freePrompt{}
}

// freePrompt is the concise top-N variant for the free tier.
type freePrompt struct{}

func (freePrompt) MatchCount() int          { return 5 }
func (freePrompt) ModelTier() llm.ModelTier { return llm.TierLite }
func (freePrompt) Version() string          { return "score-free/v1" }

func (p freePrompt) BuildPrompt(prefs *types.UserPreferences, candidates []types.MatchCandidate) string {
	template := prompts.MustGet("matching.json", "score-free")
	return prompts.Format(template, map[string]string{
		"Profile":    freeProfileSummary(prefs),
		"Jobs":       formatJobList(candidates),
		"MatchCount": strconv.Itoa(p.MatchCount()),
	})
}

// premiumPrompt requests the full 4-dimension breakdown with per-job
// reasoning.
type premiumPrompt struct{}

func (premiumPrompt) MatchCount() int          { return 15 }
func (premiumPrompt) ModelTier() llm.ModelTier { return llm.TierStandard }
func (premiumPrompt) Version() string          { return "score-premium/v1" }

func (p premiumPrompt) BuildPrompt(prefs *types.UserPreferences, candidates []types.MatchCandidate) string {
	template := prompts.MustGet("matching.json", "score-premium")
	return prompts.Format(template, map[string]string{
		"Profile":    prefs.ProfileText(),
		"Jobs":       formatJobList(candidates),
		"MatchCount": strconv.Itoa(p.MatchCount()),
	})
}

// freeProfileSummary keeps the free-tier prompt short: cities, path, and
// skills only.
func freeProfileSummary(prefs *types.UserPreferences) string {
	var sb strings.Builder
	sb.WriteString("Target cities: " + strings.Join(prefs.TargetCities, ", "))
	sb.WriteString("\nCareer path: " + strings.Join(prefs.CareerPath, ", "))
	if len(prefs.Skills) > 0 {
		sb.WriteString("\nSkills: " + strings.Join(prefs.Skills, ", "))
	}
	return sb.String()
}

func formatJobList(candidates []types.MatchCandidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		job := c.Job
		kind := "graduate"
		if job.IsInternship {
			kind = "internship"
		}
		sb.WriteString(fmt.Sprintf("%d: %s | %s | %s | %s | %s\n",
			i, job.Title, job.Company, job.City,
			strings.Join(job.Categories, "/"), kind))
	}
	return sb.String()
}
