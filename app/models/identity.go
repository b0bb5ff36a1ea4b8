// Package models defines identity, usage and webhook ledger records.
package models

import "time"

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

type SubscriptionStatus string

const (
	StatusInactive  SubscriptionStatus = "inactive"
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Identity is one row per user. The license key is the bearer secret; rows
// are created on free-key issuance or first successful checkout and are
// never deleted.
type Identity struct {
	ID                     string             `db:"id"`
	LicenseKey             string             `db:"license_key"`
	Email                  string             `db:"email"`
	Tier                   Tier               `db:"tier"`
	SubscriptionStatus     SubscriptionStatus `db:"subscription_status"`
	ProviderCustomerID     string             `db:"provider_customer_id"`
	ProviderSubscriptionID string             `db:"provider_subscription_id"`
	CreatedAt              time.Time          `db:"created_at"`
	LastValidatedAt        time.Time          `db:"last_validated_at"`
}
