package types

import "time"

// MatchAlgorithm identifies which scoring strategy produced a match.
type MatchAlgorithm string

// MatchAlgorithm constants
const (
	AlgorithmAI    MatchAlgorithm = "ai"
	AlgorithmRules MatchAlgorithm = "rules"
)

// ErrorCategory classifies why an AI scoring attempt failed. Empty when the
// attempt succeeded or was never made.
type ErrorCategory string

// ErrorCategory constants
const (
	ErrorCategoryTimeout         ErrorCategory = "timeout"
	ErrorCategorySchemaViolation ErrorCategory = "schema_violation"
	ErrorCategoryProviderError   ErrorCategory = "provider_error"
	ErrorCategoryEmptyResponse   ErrorCategory = "empty_response"
)

// MatchProvenance is the append-only audit record attached to every
// persisted match. Exactly one row per match; never mutated after creation.
type MatchProvenance struct {
	UserEmail       string         `json:"user_email"`
	JobHash         string         `json:"job_hash"`
	MatchAlgorithm  MatchAlgorithm `json:"match_algorithm"`
	AIModel         string         `json:"ai_model,omitempty"`
	PromptVersion   string         `json:"prompt_version,omitempty"`
	AILatencyMS     int64          `json:"ai_latency_ms"`
	AICostUSD       float64        `json:"ai_cost_usd"`
	CacheHit        bool           `json:"cache_hit"`
	FallbackReason  string         `json:"fallback_reason,omitempty"`
	RetryCount      int            `json:"retry_count"`
	ErrorCategory   ErrorCategory  `json:"error_category,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"`
	CreatedAt       time.Time      `json:"created_at"`
}

// SeenJob marks a job as already delivered to a user. Once a (user, job_hash)
// pair exists here the job must never reappear in that user's match sets.
type SeenJob struct {
	UserEmail string    `json:"user_email"`
	JobHash   string    `json:"job_hash"`
	SentAt    time.Time `json:"sent_at"`
}

// SendLedgerEntry tracks per-user weekly delivery counters by tier.
type SendLedgerEntry struct {
	UserEmail string    `json:"user_email"`
	WeekStart time.Time `json:"week_start"`
	Tier      Tier      `json:"tier"`
	SendsUsed int       `json:"sends_used"`
	JobsSent  int       `json:"jobs_sent"`
}

// WeekStart returns the Monday 00:00 UTC bucket for t, the key the send
// ledger counts against.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday bucket
	}
	day := t.Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -(weekday - 1))
}
