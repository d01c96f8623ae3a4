package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gradmatch/matcher/internal/embeddings"
	"github.com/gradmatch/matcher/internal/types"
)

// staleProcessingWindow is how long an item may sit in processing before
// it is considered abandoned by a dead worker and reclaimed.
const staleProcessingWindow = "15 minutes"

// ClaimPending atomically moves up to limit pending queue items to
// processing and returns them. FOR UPDATE SKIP LOCKED keeps concurrent
// workers from claiming the same item. Items stuck in processing past the
// staleness window are reclaimed too, so a crashed worker cannot strand
// them.
func (db *DB) ClaimPending(ctx context.Context, limit int) ([]embeddings.QueueItem, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && rErr != pgx.ErrTxClosed {
			_ = rErr
		}
	}()

	rows, err := tx.Query(ctx,
		`SELECT job_hash, text, attempts
		 FROM embedding_queue
		 WHERE status = 'pending'
		    OR (status = 'processing' AND updated_at < NOW() - $2::interval)
		 ORDER BY created_at
		 LIMIT $1
		 FOR UPDATE SKIP LOCKED`,
		limit, staleProcessingWindow,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending embeddings: %w", err)
	}

	var items []embeddings.QueueItem
	for rows.Next() {
		var item embeddings.QueueItem
		if err := rows.Scan(&item.JobHash, &item.Text, &item.Attempts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan queue row: %w", err)
		}
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queue rows: %w", err)
	}

	for _, item := range items {
		_, err := tx.Exec(ctx,
			`UPDATE embedding_queue
			 SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
			 WHERE job_hash = $1`,
			item.JobHash,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to claim queue item %s: %w", item.JobHash, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return items, nil
}

// MarkProcessed completes a queue item.
func (db *DB) MarkProcessed(ctx context.Context, jobHash string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE embedding_queue
		 SET status = 'completed', updated_at = NOW()
		 WHERE job_hash = $1`,
		jobHash,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item processed: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt. Transient failures return the item
// to pending for a later cycle; permanent ones park it as failed.
func (db *DB) MarkFailed(ctx context.Context, jobHash, errMsg string, permanent bool) error {
	status := "pending"
	if permanent {
		status = "failed"
	}

	_, err := db.pool.Exec(ctx,
		`UPDATE embedding_queue
		 SET status = $1, last_error = $2, updated_at = NOW()
		 WHERE job_hash = $3`,
		status, errMsg, jobHash,
	)
	if err != nil {
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	return nil
}

// EnqueueMissing backfills the queue with active jobs that have neither a
// stored embedding nor a queue entry. The embedding input text is rendered
// in Go so it always matches what retrieval expects. Returns the number
// enqueued.
func (db *DB) EnqueueMissing(ctx context.Context) (int, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT j.job_hash, j.title, j.company, j.city, j.country, j.categories
		 FROM jobs j
		 LEFT JOIN job_embeddings e ON e.job_hash = j.job_hash
		 LEFT JOIN embedding_queue q ON q.job_hash = j.job_hash
		 WHERE j.is_active = TRUE AND j.status = 'active'
		   AND e.job_hash IS NULL AND q.job_hash IS NULL`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to find jobs missing embeddings: %w", err)
	}

	var missing []types.Job
	for rows.Next() {
		var j types.Job
		var categoriesJSON []byte
		if err := rows.Scan(&j.JobHash, &j.Title, &j.Company, &j.City, &j.Country, &categoriesJSON); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan missing-embedding row: %w", err)
		}
		if categoriesJSON != nil {
			_ = json.Unmarshal(categoriesJSON, &j.Categories)
		}
		missing = append(missing, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate missing-embedding rows: %w", err)
	}

	enqueued := 0
	for _, j := range missing {
		tag, err := db.pool.Exec(ctx,
			`INSERT INTO embedding_queue (job_hash, text, status, attempts)
			 VALUES ($1, $2, 'pending', 0)
			 ON CONFLICT (job_hash) DO NOTHING`,
			j.JobHash, j.PostingText(),
		)
		if err != nil {
			return enqueued, fmt.Errorf("failed to enqueue embedding for %s: %w", j.JobHash, err)
		}
		// ON CONFLICT DO NOTHING reports zero rows; a concurrent enqueue
		// must not inflate the count.
		enqueued += int(tag.RowsAffected())
	}
	return enqueued, nil
}
