package types

import "time"

// MatchCandidate pairs a job with a user for the duration of one matching
// run, carrying the pre-filter similarity and the relaxation level that was
// in effect when the candidate was selected.
type MatchCandidate struct {
	Job             Job     `json:"job"`
	UserEmail       string  `json:"user_email"`
	Similarity      float64 `json:"similarity"`
	RelaxationLevel int     `json:"relaxation_level"`
}

// ScoreBreakdown is the per-dimension decomposition of a match score.
// Each dimension is on the same 0-100 scale as the composite.
type ScoreBreakdown struct {
	Skills     int `json:"skills"`
	Experience int `json:"experience"`
	Location   int `json:"location"`
	Company    int `json:"company"`
	Overall    int `json:"overall"`
}

// ScoredMatch extends a MatchCandidate with the output of a scoring
// strategy. Immutable once produced.
type ScoredMatch struct {
	Candidate   MatchCandidate `json:"candidate"`
	MatchScore  int            `json:"match_score"` // 0-100
	Confidence  float64        `json:"confidence"`  // 0.0-1.0
	MatchReason string         `json:"match_reason"`
	Breakdown   ScoreBreakdown `json:"score_breakdown"`
}

// Match is the persisted row consumed by the delivery stage.
type Match struct {
	UserEmail   string    `json:"user_email"`
	JobHash     string    `json:"job_hash"`
	MatchScore  int       `json:"match_score"`
	MatchReason string    `json:"match_reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClampScore forces a score into the 0-100 range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ClampConfidence forces a confidence into the 0.0-1.0 range.
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
