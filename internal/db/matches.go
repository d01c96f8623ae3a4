package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gradmatch/matcher/internal/types"
)

// InsertMatches persists a user's match batch together with the provenance
// row for each match in a single transaction. The two slices must be
// index-aligned; a partial insert never becomes visible, so every stored
// match has its audit record by construction.
func (db *DB) InsertMatches(ctx context.Context, matches []types.Match, records []types.MatchProvenance) error {
	if len(matches) != len(records) {
		return fmt.Errorf("match/provenance length mismatch: %d vs %d", len(matches), len(records))
	}
	if len(matches) == 0 {
		return nil
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			_ = rErr
		}
	}()

	for i, m := range matches {
		_, err = tx.Exec(ctx,
			`INSERT INTO matches (user_email, job_hash, match_score, match_reason, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_email, job_hash) DO UPDATE
			 SET match_score = $3, match_reason = $4, created_at = $5`,
			m.UserEmail, m.JobHash, m.MatchScore, m.MatchReason, m.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match %s: %w", m.JobHash, err)
		}

		r := records[i]
		_, err = tx.Exec(ctx,
			`INSERT INTO match_provenance (user_email, job_hash, match_algorithm,
			        ai_model, prompt_version, ai_latency_ms, ai_cost_usd, cache_hit,
			        fallback_reason, retry_count, error_category, confidence_score,
			        created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			r.UserEmail, r.JobHash, string(r.MatchAlgorithm), r.AIModel,
			r.PromptVersion, r.AILatencyMS, r.AICostUSD, r.CacheHit,
			r.FallbackReason, r.RetryCount, string(r.ErrorCategory),
			r.ConfidenceScore, r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert provenance for %s: %w", r.JobHash, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit matches: %w", err)
	}
	return nil
}

// GetMatchProvenance retrieves the audit record for one match.
func (db *DB) GetMatchProvenance(ctx context.Context, userEmail, jobHash string) (*types.MatchProvenance, error) {
	var r types.MatchProvenance
	var algorithm, category string

	err := db.pool.QueryRow(ctx,
		`SELECT user_email, job_hash, match_algorithm, ai_model, prompt_version,
		        ai_latency_ms, ai_cost_usd, cache_hit, fallback_reason,
		        retry_count, error_category, confidence_score, created_at
		 FROM match_provenance
		 WHERE user_email = $1 AND job_hash = $2`,
		userEmail, jobHash,
	).Scan(&r.UserEmail, &r.JobHash, &algorithm, &r.AIModel, &r.PromptVersion,
		&r.AILatencyMS, &r.AICostUSD, &r.CacheHit, &r.FallbackReason,
		&r.RetryCount, &category, &r.ConfidenceScore, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match provenance: %w", err)
	}

	r.MatchAlgorithm = types.MatchAlgorithm(algorithm)
	r.ErrorCategory = types.ErrorCategory(category)
	return &r, nil
}
