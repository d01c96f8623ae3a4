package db

import (
	"context"
	"fmt"
	"time"
)

// GetSeenHashes returns the set of job hashes already delivered to a user.
func (db *DB) GetSeenHashes(ctx context.Context, userEmail string) (map[string]bool, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT job_hash FROM seen_jobs WHERE user_email = $1`,
		userEmail,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get seen jobs: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan seen job row: %w", err)
		}
		seen[hash] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seen job rows: %w", err)
	}
	return seen, nil
}

// MarkSeen records delivered job hashes for a user. The (user_email,
// job_hash) pair is unique; re-marking is a no-op rather than an error.
func (db *DB) MarkSeen(ctx context.Context, userEmail string, jobHashes []string, seenAt time.Time) error {
	for _, hash := range jobHashes {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO seen_jobs (user_email, job_hash, sent_at)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_email, job_hash) DO NOTHING`,
			userEmail, hash, seenAt,
		)
		if err != nil {
			return fmt.Errorf("failed to mark job %s seen: %w", hash, err)
		}
	}
	return nil
}
