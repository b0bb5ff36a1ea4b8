package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
)

// UsageStore is the append-only request ledger. All quota and cost reporting
// is answered by counting this table; there are no cached counters to drift.
type UsageStore interface {
	Insert(ctx context.Context, rec *models.UsageRecord) error
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	TotalsSince(ctx context.Context, userID string, since time.Time) (*models.UsageTotals, error)
}

// UsageDB is the Postgres-backed usage ledger.
type UsageDB struct {
	db *sql.DB
}

func NewUsageDB(db *sql.DB) *UsageDB {
	return &UsageDB{db: db}
}

func (s *UsageDB) Insert(ctx context.Context, rec *models.UsageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (
			user_id, prompt_type, model,
			input_tokens, output_tokens, reasoning_tokens, cached_tokens,
			total_cost, response_time_ms, cached, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`,
		rec.UserID,
		rec.PromptType,
		rec.Model,
		rec.InputTokens,
		rec.OutputTokens,
		rec.ReasoningTokens,
		rec.CachedTokens,
		rec.TotalCost,
		rec.ResponseTimeMs,
		rec.Cached,
		rec.CreatedAt,
	)
	return err
}

func (s *UsageDB) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM usage_records
		WHERE user_id = $1
		  AND created_at >= $2;
	`, userID, since).Scan(&count)
	return count, err
}

func (s *UsageDB) TotalsSince(ctx context.Context, userID string, since time.Time) (*models.UsageTotals, error) {
	var totals models.UsageTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(input_tokens + output_tokens), 0),
			COALESCE(SUM(total_cost), 0),
			COALESCE(SUM(CASE WHEN cached THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(response_time_ms), 0)::bigint
		FROM usage_records
		WHERE user_id = $1
		  AND created_at >= $2;
	`, userID, since).Scan(
		&totals.Requests,
		&totals.TotalTokens,
		&totals.TotalCost,
		&totals.CachedHits,
		&totals.AvgLatencyMs,
	)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}
