package models

import "time"

// UsageRecord is one row per completed AI call. Rows are append-only and
// immutable; cost is computed once at write time and never recomputed.
type UsageRecord struct {
	UserID          string    `db:"user_id"`
	PromptType      string    `db:"prompt_type"`
	Model           string    `db:"model"`
	InputTokens     int       `db:"input_tokens"`
	OutputTokens    int       `db:"output_tokens"`
	ReasoningTokens int       `db:"reasoning_tokens"`
	CachedTokens    int       `db:"cached_tokens"`
	TotalCost       float64   `db:"total_cost"`
	ResponseTimeMs  int64     `db:"response_time_ms"`
	Cached          bool      `db:"cached"`
	CreatedAt       time.Time `db:"created_at"`
}

// UsageTotals aggregates the ledger over a window for reporting.
type UsageTotals struct {
	Requests     int
	TotalTokens  int
	TotalCost    float64
	CachedHits   int
	AvgLatencyMs int64
}
