// Package distribution turns a scored match list into the set of matches a
// user actually receives: already-seen jobs removed, the list cut to the
// tier quota, and no single city or category allowed to dominate the batch.
package distribution

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gradmatch/matcher/internal/types"
)

// Default quotas per tier. A batch never exceeds the job quota, and a user
// never receives more than the send quota of batches in one week.
const (
	FreeJobQuota    = 5
	PremiumJobQuota = 15

	FreeSendsPerWeek    = 1
	PremiumSendsPerWeek = 3

	DefaultDiversityPercent = 60
)

// Policy holds the distribution knobs. Zero fields fall back to the
// defaults, so a partially filled Policy is usable.
type Policy struct {
	FreeJobQuota    int
	PremiumJobQuota int

	FreeSendsPerWeek    int
	PremiumSendsPerWeek int

	// DiversityPercent is the maximum share of one batch a single city or
	// category may take, as a percentage of the job quota.
	DiversityPercent int
}

// DefaultPolicy returns the standard quotas and diversity cap.
func DefaultPolicy() Policy {
	return Policy{
		FreeJobQuota:        FreeJobQuota,
		PremiumJobQuota:     PremiumJobQuota,
		FreeSendsPerWeek:    FreeSendsPerWeek,
		PremiumSendsPerWeek: PremiumSendsPerWeek,
		DiversityPercent:    DefaultDiversityPercent,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.FreeJobQuota <= 0 {
		p.FreeJobQuota = d.FreeJobQuota
	}
	if p.PremiumJobQuota <= 0 {
		p.PremiumJobQuota = d.PremiumJobQuota
	}
	if p.FreeSendsPerWeek <= 0 {
		p.FreeSendsPerWeek = d.FreeSendsPerWeek
	}
	if p.PremiumSendsPerWeek <= 0 {
		p.PremiumSendsPerWeek = d.PremiumSendsPerWeek
	}
	if p.DiversityPercent <= 0 || p.DiversityPercent > 100 {
		p.DiversityPercent = d.DiversityPercent
	}
	return p
}

// JobQuota returns the per-batch match limit for a tier.
func (p Policy) JobQuota(tier types.Tier) int {
	p = p.normalized()
	if tier == types.TierPremium {
		return p.PremiumJobQuota
	}
	return p.FreeJobQuota
}

// SendQuota returns the weekly batch limit for a tier.
func (p Policy) SendQuota(tier types.Tier) int {
	p = p.normalized()
	if tier == types.TierPremium {
		return p.PremiumSendsPerWeek
	}
	return p.FreeSendsPerWeek
}

// DiversityCap is the maximum number of batch slots one city or category
// may take for the given quota, rounded up.
func (p Policy) DiversityCap(quota int) int {
	p = p.normalized()
	return (quota*p.DiversityPercent + 99) / 100
}

// JobQuota returns the default per-batch match limit for a tier.
func JobQuota(tier types.Tier) int {
	return DefaultPolicy().JobQuota(tier)
}

// SendQuota returns the default weekly batch limit for a tier.
func SendQuota(tier types.Tier) int {
	return DefaultPolicy().SendQuota(tier)
}

// DiversityCap applies the default diversity percentage to a quota.
func DiversityCap(quota int) int {
	return DefaultPolicy().DiversityCap(quota)
}

// Select filters scored matches against the user's seen-job history with
// the default policy. See Policy.Select.
func Select(scored []types.ScoredMatch, seen map[string]bool, tier types.Tier) []types.ScoredMatch {
	return DefaultPolicy().Select(scored, seen, tier)
}

// Select filters scored matches against the user's seen-job history, orders
// them deterministically, and applies the tier quota with per-city and
// per-category diversity caps. When the caps leave slots unfilled they are
// backfilled in rank order, so a pool that is all Berlin still yields a
// full batch. An undersized result is returned as-is; seen jobs are never
// reused to pad a batch.
func (p Policy) Select(scored []types.ScoredMatch, seen map[string]bool, tier types.Tier) []types.ScoredMatch {
	eligible := make([]types.ScoredMatch, 0, len(scored))
	for _, m := range scored {
		if seen[m.Candidate.Job.JobHash] {
			continue
		}
		eligible = append(eligible, m)
	}

	sortMatches(eligible)

	quota := p.JobQuota(tier)
	limit := p.DiversityCap(quota)

	cityCount := make(map[string]int)
	catCount := make(map[string]int)
	picked := make([]types.ScoredMatch, 0, quota)
	var skipped []types.ScoredMatch

	for _, m := range eligible {
		if len(picked) >= quota {
			break
		}
		city := cityKey(m.Candidate.Job)
		cat := categoryKey(m.Candidate.Job)
		if cityCount[city] >= limit || catCount[cat] >= limit {
			skipped = append(skipped, m)
			continue
		}
		cityCount[city]++
		catCount[cat]++
		picked = append(picked, m)
	}

	// Backfill: the caps shape the batch, they do not shrink it.
	for _, m := range skipped {
		if len(picked) >= quota {
			break
		}
		picked = append(picked, m)
	}

	sortMatches(picked)
	return picked
}

// sortMatches orders score desc, then confidence desc, then recency desc,
// then hash. Ties are impossible to break any other stable way.
func sortMatches(matches []types.ScoredMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.Candidate.Job.CreatedAt.Equal(b.Candidate.Job.CreatedAt) {
			return a.Candidate.Job.CreatedAt.After(b.Candidate.Job.CreatedAt)
		}
		return a.Candidate.Job.JobHash < b.Candidate.Job.JobHash
	})
}

func cityKey(job types.Job) string {
	city := strings.ToLower(strings.TrimSpace(job.City))
	if city == "" {
		return "unknown"
	}
	return city
}

// categoryKey counts a job against its primary category.
func categoryKey(job types.Job) string {
	if len(job.Categories) == 0 {
		return "uncategorized"
	}
	return strings.ToLower(job.Categories[0])
}

// Store persists the side effects of delivering a batch.
type Store interface {
	// MarkSeen records the delivered job hashes for the user so later runs
	// skip them. Re-marking an already seen job is a no-op.
	MarkSeen(ctx context.Context, userEmail string, jobHashes []string, seenAt time.Time) error
	// IncrementSendLedger counts one delivered batch of jobCount jobs
	// against the user's weekly quota for the week containing sentAt.
	IncrementSendLedger(ctx context.Context, userEmail string, tier types.Tier, jobCount int, sentAt time.Time) error
}

// Commit records a delivered batch: every job hash goes into the seen set
// and the weekly send ledger is incremented once. Empty batches commit
// nothing; a run that found no matches does not burn a send.
func Commit(ctx context.Context, store Store, userEmail string, tier types.Tier, matches []types.ScoredMatch, sentAt time.Time) error {
	if len(matches) == 0 {
		return nil
	}
	hashes := make([]string, len(matches))
	for i, m := range matches {
		hashes[i] = m.Candidate.Job.JobHash
	}
	if err := store.MarkSeen(ctx, userEmail, hashes, sentAt); err != nil {
		return err
	}
	return store.IncrementSendLedger(ctx, userEmail, tier, len(matches), sentAt)
}
