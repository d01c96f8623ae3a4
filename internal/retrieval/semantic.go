// Package retrieval ranks candidate jobs for a user profile by vector
// similarity.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/gradmatch/matcher/internal/embeddings"
	"github.com/gradmatch/matcher/internal/types"
)

// JobEmbeddingStore loads persisted job embeddings produced by the queue
// worker, keyed by job_hash.
type JobEmbeddingStore interface {
	GetJobEmbeddings(ctx context.Context, jobHashes []string) (map[string]embeddings.Vector, error)
}

// RankedJob is a job with its similarity to the user profile.
type RankedJob struct {
	Job        types.Job
	Similarity float64
}

// Retriever performs semantic candidate retrieval. Requires both a
// user-profile embedding and per-job embeddings; when either is missing it
// returns an empty list, which callers treat as "no semantic signal".
type Retriever struct {
	service *embeddings.Service
	store   JobEmbeddingStore
}

// NewRetriever constructs a Retriever.
func NewRetriever(service *embeddings.Service, store JobEmbeddingStore) *Retriever {
	return &Retriever{service: service, store: store}
}

// Candidates returns up to limit jobs from the pool ranked by cosine
// similarity to the user's profile embedding. Ties break by job recency
// (most recent first), then job hash for full determinism. Jobs without a
// persisted embedding are skipped. Signal unavailability is not an error;
// only store failures are.
func (r *Retriever) Candidates(ctx context.Context, prefs *types.UserPreferences, pool []types.Job, limit int) ([]RankedJob, error) {
	if len(pool) == 0 || r.service == nil {
		return nil, nil
	}

	profileVec := r.service.GetEmbedding(ctx, prefs.Email, prefs.ProfileText())
	if profileVec == nil {
		return nil, nil
	}

	hashes := make([]string, 0, len(pool))
	for _, job := range pool {
		hashes = append(hashes, job.JobHash)
	}
	jobVecs, err := r.store.GetJobEmbeddings(ctx, hashes)
	if err != nil {
		return nil, fmt.Errorf("load job embeddings: %w", err)
	}
	if len(jobVecs) == 0 {
		return nil, nil
	}

	ranked := make([]RankedJob, 0, len(pool))
	for _, job := range pool {
		vec, ok := jobVecs[job.JobHash]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedJob{
			Job:        job,
			Similarity: embeddings.Cosine(profileVec, vec),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		if !ranked[i].Job.CreatedAt.Equal(ranked[j].Job.CreatedAt) {
			return ranked[i].Job.CreatedAt.After(ranked[j].Job.CreatedAt)
		}
		return ranked[i].Job.JobHash < ranked[j].Job.JobHash
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// CacheHit reports whether the profile embedding for the last Candidates
// call came from cache.
func (r *Retriever) CacheHit() bool {
	return r.service != nil && r.service.LastCacheHit()
}
