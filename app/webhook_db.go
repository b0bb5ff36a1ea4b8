package app

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDuplicateEvent reports that a webhook event id has already been applied.
var ErrDuplicateEvent = errors.New("webhook event already processed")

// WebhookStore records processed provider event ids. Record must be atomic:
// the insert itself is the dedupe check, so two concurrent deliveries of the
// same event cannot both succeed.
type WebhookStore interface {
	Record(ctx context.Context, eventID string, providerTimestamp int64, processedAt time.Time) error
}

// WebhookDB is the Postgres-backed webhook ledger. The event_id column
// carries a unique constraint; a 23505 on insert maps to ErrDuplicateEvent.
type WebhookDB struct {
	db *sql.DB
}

func NewWebhookDB(db *sql.DB) *WebhookDB {
	return &WebhookDB{db: db}
}

func (s *WebhookDB) Record(ctx context.Context, eventID string, providerTimestamp int64, processedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_ledger (event_id, processed_at, provider_timestamp)
		VALUES ($1, $2, $3);
	`, eventID, processedAt, providerTimestamp)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateEvent
	}
	return err
}
