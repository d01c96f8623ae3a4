package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// JobStatus constants for the ingestion-owned status column.
const (
	JobStatusActive   = "active"
	JobStatusInactive = "inactive"
	JobStatusExpired  = "expired"
)

// Job is a normalized job posting handed to the core by the ingestion stage.
// The core only reads job content; ingestion owns creation and updates.
type Job struct {
	JobHash      string    `json:"job_hash"`
	Title        string    `json:"title"`
	Company      string    `json:"company"`
	City         string    `json:"city"`
	Country      string    `json:"country"`
	Categories   []string  `json:"categories"`
	IsInternship bool      `json:"is_internship"`
	IsGraduate   bool      `json:"is_graduate"`
	IsActive     bool      `json:"is_active"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsCandidate reports whether the job may enter a matching run at all.
func (j *Job) IsCandidate() bool {
	return j.IsActive && j.Status == JobStatusActive
}

// IsEarlyCareer reports whether the job carries either early-career flag.
func (j *Job) IsEarlyCareer() bool {
	return j.IsInternship || j.IsGraduate
}

// HasCategory reports whether the job carries the given category.
func (j *Job) HasCategory(category string) bool {
	for _, c := range j.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

// PostingText renders the fields used for the job's embedding input.
func (j *Job) PostingText() string {
	parts := []string{j.Title, j.Company, j.City, j.Country}
	if len(j.Categories) > 0 {
		parts = append(parts, strings.Join(j.Categories, ", "))
	}
	return strings.Join(parts, " | ")
}

// HashJob derives the content identity of a job from its normalized
// title, company, and location. Identical postings hash identically, which
// is what dedup and idempotent upserts key on.
func HashJob(title, company, city string) string {
	normalized := strings.ToLower(strings.TrimSpace(title)) + "|" +
		strings.ToLower(strings.TrimSpace(company)) + "|" +
		strings.ToLower(strings.TrimSpace(city))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
