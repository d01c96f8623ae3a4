package distribution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmatch/matcher/internal/types"
)

func scored(hash, city, category string, score int, createdAt time.Time) types.ScoredMatch {
	return types.ScoredMatch{
		Candidate: types.MatchCandidate{
			UserEmail: "jane@example.com",
			Job: types.Job{
				JobHash:    hash,
				Title:      "Engineer",
				Company:    "Acme",
				City:       city,
				Categories: []string{category},
				CreatedAt:  createdAt,
			},
		},
		MatchScore:  score,
		Confidence:  0.8,
		MatchReason: "fit",
	}
}

func TestSelect_DropsSeenJobs(t *testing.T) {
	now := time.Now()
	matches := []types.ScoredMatch{
		scored("a", "Berlin", "tech", 90, now),
		scored("b", "Berlin", "tech", 85, now),
		scored("c", "Munich", "data", 80, now),
	}
	seen := map[string]bool{"b": true}

	out := Select(matches, seen, types.TierFree)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Candidate.Job.JobHash)
	assert.Equal(t, "c", out[1].Candidate.Job.JobHash)
}

func TestSelect_AllSeenYieldsEmpty(t *testing.T) {
	now := time.Now()
	matches := []types.ScoredMatch{
		scored("a", "Berlin", "tech", 90, now),
		scored("b", "Berlin", "tech", 85, now),
	}
	seen := map[string]bool{"a": true, "b": true}

	out := Select(matches, seen, types.TierFree)
	assert.Empty(t, out)
}

func TestSelect_EnforcesTierQuota(t *testing.T) {
	now := time.Now()
	var matches []types.ScoredMatch
	cities := []string{"Berlin", "Munich", "Hamburg", "Cologne", "Leipzig", "Dresden", "Bremen"}
	cats := []string{"tech", "data", "design", "sales", "finance", "legal", "media"}
	for i := 0; i < 7; i++ {
		matches = append(matches, scored(string(rune('a'+i)), cities[i], cats[i], 90-i, now))
	}

	assert.Len(t, Select(matches, nil, types.TierFree), 5)
	assert.Len(t, Select(matches, nil, types.TierPremium), 7)
}

func TestSelect_DiversityCapSpreadsCities(t *testing.T) {
	// Free quota 5, cap 3. Six high-scoring Berlin jobs and two Munich
	// jobs: Berlin takes at most 3 of the first pass, Munich fills in.
	now := time.Now()
	var matches []types.ScoredMatch
	for i := 0; i < 6; i++ {
		matches = append(matches, scored("b"+string(rune('0'+i)), "Berlin", "tech", 95-i, now))
	}
	matches = append(matches,
		scored("m0", "Munich", "data", 70, now),
		scored("m1", "Munich", "data", 69, now),
	)

	out := Select(matches, nil, types.TierFree)
	require.Len(t, out, 5)

	berlin := 0
	for _, m := range out {
		if m.Candidate.Job.City == "Berlin" {
			berlin++
		}
	}
	assert.Equal(t, 3, berlin)
}

func TestSelect_BackfillsWhenPoolIsHomogeneous(t *testing.T) {
	// All Berlin tech: caps would allow only 3, but backfill restores the
	// full batch rather than delivering a short one.
	now := time.Now()
	var matches []types.ScoredMatch
	for i := 0; i < 8; i++ {
		matches = append(matches, scored("j"+string(rune('0'+i)), "Berlin", "tech", 95-i, now))
	}

	out := Select(matches, nil, types.TierFree)
	require.Len(t, out, 5)
	// Rank order survives the backfill.
	assert.Equal(t, "j0", out[0].Candidate.Job.JobHash)
	assert.Equal(t, "j4", out[4].Candidate.Job.JobHash)
}

func TestSelect_DeterministicTieBreak(t *testing.T) {
	ts := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	matches := []types.ScoredMatch{
		scored("zzz", "Berlin", "tech", 80, ts),
		scored("aaa", "Munich", "data", 80, ts),
	}
	matches[0].Confidence = 0.8
	matches[1].Confidence = 0.8

	first := Select(matches, nil, types.TierFree)
	second := Select([]types.ScoredMatch{matches[1], matches[0]}, nil, types.TierFree)

	require.Len(t, first, 2)
	assert.Equal(t, "aaa", first[0].Candidate.Job.JobHash)
	assert.Equal(t, first[0].Candidate.Job.JobHash, second[0].Candidate.Job.JobHash)
}

func TestSelect_RecencyBreaksScoreTies(t *testing.T) {
	older := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	matches := []types.ScoredMatch{
		scored("old", "Berlin", "tech", 80, older),
		scored("new", "Munich", "data", 80, newer),
	}

	out := Select(matches, nil, types.TierFree)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].Candidate.Job.JobHash)
}

func TestDiversityCap(t *testing.T) {
	assert.Equal(t, 3, DiversityCap(FreeJobQuota))
	assert.Equal(t, 9, DiversityCap(PremiumJobQuota))
	assert.Equal(t, 1, DiversityCap(1))
}

func TestPolicy_ZeroFieldsFallBackToDefaults(t *testing.T) {
	var p Policy
	assert.Equal(t, FreeJobQuota, p.JobQuota(types.TierFree))
	assert.Equal(t, PremiumJobQuota, p.JobQuota(types.TierPremium))
	assert.Equal(t, FreeSendsPerWeek, p.SendQuota(types.TierFree))
	assert.Equal(t, PremiumSendsPerWeek, p.SendQuota(types.TierPremium))
	assert.Equal(t, 3, p.DiversityCap(5))
}

func TestPolicy_OverridesApply(t *testing.T) {
	p := Policy{FreeJobQuota: 2, PremiumSendsPerWeek: 5, DiversityPercent: 100}
	assert.Equal(t, 2, p.JobQuota(types.TierFree))
	assert.Equal(t, 5, p.SendQuota(types.TierPremium))
	// Unset fields keep their defaults.
	assert.Equal(t, PremiumJobQuota, p.JobQuota(types.TierPremium))
	assert.Equal(t, FreeSendsPerWeek, p.SendQuota(types.TierFree))
	// 100% disables the cap entirely.
	assert.Equal(t, 5, p.DiversityCap(5))
}

func TestPolicySelect_CustomQuotaAndCap(t *testing.T) {
	now := time.Now()
	var matches []types.ScoredMatch
	for i := 0; i < 6; i++ {
		matches = append(matches, scored("b"+string(rune('0'+i)), "Berlin", "tech", 95-i, now))
	}
	matches = append(matches, scored("m0", "Munich", "data", 70, now))

	p := Policy{FreeJobQuota: 3, DiversityPercent: 40}
	out := p.Select(matches, nil, types.TierFree)
	require.Len(t, out, 3)

	// Cap is ceil(3 * 40%) = 2, so the third slot goes to Munich.
	berlin := 0
	for _, m := range out {
		if m.Candidate.Job.City == "Berlin" {
			berlin++
		}
	}
	assert.Equal(t, 2, berlin)
	assert.Equal(t, "m0", out[2].Candidate.Job.JobHash)
}

type fakeStore struct {
	seen      map[string][]string
	sendCount int
	jobsSent  int
	tier      types.Tier
	failSeen  bool
}

func (f *fakeStore) MarkSeen(_ context.Context, userEmail string, hashes []string, _ time.Time) error {
	if f.failSeen {
		return assert.AnError
	}
	if f.seen == nil {
		f.seen = make(map[string][]string)
	}
	f.seen[userEmail] = append(f.seen[userEmail], hashes...)
	return nil
}

func (f *fakeStore) IncrementSendLedger(_ context.Context, _ string, tier types.Tier, jobCount int, _ time.Time) error {
	f.sendCount++
	f.jobsSent += jobCount
	f.tier = tier
	return nil
}

func TestCommit_RecordsSeenAndLedgerOnce(t *testing.T) {
	store := &fakeStore{}
	now := time.Now()
	matches := []types.ScoredMatch{
		scored("a", "Berlin", "tech", 90, now),
		scored("b", "Munich", "data", 85, now),
	}

	err := Commit(context.Background(), store, "jane@example.com", types.TierFree, matches, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, store.seen["jane@example.com"])
	assert.Equal(t, 1, store.sendCount)
	assert.Equal(t, 2, store.jobsSent)
	assert.Equal(t, types.TierFree, store.tier)
}

func TestCommit_EmptyBatchDoesNotBurnASend(t *testing.T) {
	store := &fakeStore{}
	err := Commit(context.Background(), store, "jane@example.com", types.TierFree, nil, time.Now())
	require.NoError(t, err)
	assert.Zero(t, store.sendCount)
	assert.Empty(t, store.seen)
}

func TestCommit_SeenFailureSkipsLedger(t *testing.T) {
	store := &fakeStore{failSeen: true}
	now := time.Now()
	err := Commit(context.Background(), store, "jane@example.com", types.TierFree, []types.ScoredMatch{scored("a", "Berlin", "tech", 90, now)}, now)
	require.Error(t, err)
	assert.Zero(t, store.sendCount)
}
