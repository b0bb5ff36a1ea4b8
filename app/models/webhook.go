package models

import "time"

// WebhookLedgerEntry marks a provider event id as applied. Exactly one row
// per distinct event id; presence of the row is the sole dedupe signal.
type WebhookLedgerEntry struct {
	EventID           string    `db:"event_id"`
	ProcessedAt       time.Time `db:"processed_at"`
	ProviderTimestamp int64     `db:"provider_timestamp"`
}
