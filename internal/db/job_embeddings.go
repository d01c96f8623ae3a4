package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gradmatch/matcher/internal/embeddings"
)

// SaveJobEmbedding persists a produced vector for retrieval. Vectors are
// stored JSON-encoded; re-saving replaces the previous vector.
func (db *DB) SaveJobEmbedding(ctx context.Context, jobHash, model string, vec embeddings.Vector) error {
	vecJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO job_embeddings (job_hash, model, vector, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (job_hash) DO UPDATE SET model = $2, vector = $3, created_at = NOW()`,
		jobHash, model, vecJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save embedding for %s: %w", jobHash, err)
	}
	return nil
}

// GetJobEmbeddings loads the stored vectors for the given job hashes.
// Hashes without a stored vector are simply absent from the result.
func (db *DB) GetJobEmbeddings(ctx context.Context, jobHashes []string) (map[string]embeddings.Vector, error) {
	if len(jobHashes) == 0 {
		return map[string]embeddings.Vector{}, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT job_hash, vector FROM job_embeddings WHERE job_hash = ANY($1)`,
		jobHashes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job embeddings: %w", err)
	}
	defer rows.Close()

	vectors := make(map[string]embeddings.Vector, len(jobHashes))
	for rows.Next() {
		var hash string
		var vecJSON []byte
		if err := rows.Scan(&hash, &vecJSON); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		var vec embeddings.Vector
		if err := json.Unmarshal(vecJSON, &vec); err != nil {
			return nil, fmt.Errorf("failed to decode embedding for %s: %w", hash, err)
		}
		vectors[hash] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate embedding rows: %w", err)
	}
	return vectors, nil
}
