package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gradmatch/matcher/internal/types"
)

// ListActiveJobs returns the active job pool, newest first. Jobs that have
// been deactivated or whose status left "active" are excluded at the query
// level so callers never see them.
func (db *DB) ListActiveJobs(ctx context.Context, maxAge time.Duration) ([]types.Job, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	rows, err := db.pool.Query(ctx,
		`SELECT job_hash, title, company, city, country, categories,
		        is_internship, is_graduate, is_active, status, created_at
		 FROM jobs
		 WHERE is_active = TRUE AND status = 'active' AND created_at >= $1
		 ORDER BY created_at DESC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active jobs: %w", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		var j types.Job
		var categoriesJSON []byte
		if err := rows.Scan(&j.JobHash, &j.Title, &j.Company, &j.City, &j.Country,
			&categoriesJSON, &j.IsInternship, &j.IsGraduate, &j.IsActive,
			&j.Status, &j.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		if categoriesJSON != nil {
			_ = json.Unmarshal(categoriesJSON, &j.Categories)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job rows: %w", err)
	}
	return jobs, nil
}

// CountActiveJobs returns the size of the current candidate pool.
func (db *DB) CountActiveJobs(ctx context.Context) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE is_active = TRUE AND status = 'active'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}
	return count, nil
}
