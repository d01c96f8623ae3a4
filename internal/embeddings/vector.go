// Package embeddings produces and caches vector representations for user
// profiles and job postings, and drains the asynchronous embedding queue.
package embeddings

import "math"

// Vector is an embedding produced by the provider.
type Vector []float32

// Cosine returns the cosine similarity between two vectors, in [-1, 1].
// Mismatched lengths or zero vectors yield 0, which ranks such pairs last
// without erroring.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
