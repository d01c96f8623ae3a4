package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmatch/matcher/internal/types"
)

type fakeLister struct {
	users []types.UserPreferences
	jobs  []types.Job
}

func (f *fakeLister) ListUsersWithPreferences(context.Context) ([]types.UserPreferences, error) {
	return f.users, nil
}

func (f *fakeLister) ListActiveJobs(context.Context, time.Duration) ([]types.Job, error) {
	return f.jobs, nil
}

func TestRunBatch_AggregatesOutcomes(t *testing.T) {
	store := newMemStore()
	runner := newTestRunner(store, echoAI{})

	other := *berlinPrefs()
	other.Email = "sam@example.com"

	// Third user has already seen everything this week.
	exhausted := *berlinPrefs()
	exhausted.Email = "alex@example.com"
	store.seen["alex@example.com"] = map[string]bool{"b1": true, "b2": true, "b3": true}

	lister := &fakeLister{
		users: []types.UserPreferences{*berlinPrefs(), other, exhausted},
		jobs:  jobPool(runner.now()),
	}

	summary, err := runner.RunBatch(context.Background(), lister, lister, 2)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Users)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.ZeroMatch)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, 6, summary.TotalMatches)
}

func TestRunBatch_UserFailureDoesNotAbortBatch(t *testing.T) {
	store := newMemStore()
	runner := newTestRunner(store, echoAI{})

	broken := types.UserPreferences{Email: "broken"}
	lister := &fakeLister{
		users: []types.UserPreferences{broken, *berlinPrefs()},
		jobs:  jobPool(runner.now()),
	}

	summary, err := runner.RunBatch(context.Background(), lister, lister, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Matched)
}

func TestRunBatch_EmptyUserList(t *testing.T) {
	runner := newTestRunner(newMemStore(), echoAI{})
	lister := &fakeLister{}

	summary, err := runner.RunBatch(context.Background(), lister, lister, 0)
	require.NoError(t, err)
	assert.Zero(t, summary.Users)
	assert.Zero(t, summary.Matched)
}
