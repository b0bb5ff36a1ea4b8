package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
)

// IdentityStore is the license directory: one row per user, keyed by license
// key and by internal id. Lookups return (nil, nil) when no row matches so
// callers can translate a miss into a 401 without error-wrangling.
type IdentityStore interface {
	FindByKey(ctx context.Context, licenseKey string) (*models.Identity, error)
	FindByEmail(ctx context.Context, email string) (*models.Identity, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.Identity, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Identity, error)
	KeyExists(ctx context.Context, licenseKey string) (bool, error)
	Insert(ctx context.Context, identity *models.Identity) error
	SetSubscription(ctx context.Context, id string, tier models.Tier, status models.SubscriptionStatus, customerID, subscriptionID string) error
	TouchValidated(ctx context.Context, id string, at time.Time) error
}

// IdentityDB is the Postgres-backed license directory.
type IdentityDB struct {
	db *sql.DB
}

func NewIdentityDB(db *sql.DB) *IdentityDB {
	return &IdentityDB{db: db}
}

const identityColumns = `
	id, license_key, COALESCE(email, ''), tier, subscription_status,
	COALESCE(provider_customer_id, ''), COALESCE(provider_subscription_id, ''),
	created_at, COALESCE(last_validated_at, to_timestamp(0))
`

func (s *IdentityDB) FindByKey(ctx context.Context, licenseKey string) (*models.Identity, error) {
	return s.findOne(ctx, `license_key = $1`, licenseKey)
}

func (s *IdentityDB) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return s.findOne(ctx, `email = $1`, email)
}

func (s *IdentityDB) FindByCustomerID(ctx context.Context, customerID string) (*models.Identity, error) {
	return s.findOne(ctx, `provider_customer_id = $1`, customerID)
}

func (s *IdentityDB) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Identity, error) {
	return s.findOne(ctx, `provider_subscription_id = $1`, subscriptionID)
}

func (s *IdentityDB) findOne(ctx context.Context, where string, arg any) (*models.Identity, error) {
	var ident models.Identity
	err := s.db.QueryRowContext(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE `+where+`;
	`, arg).Scan(
		&ident.ID,
		&ident.LicenseKey,
		&ident.Email,
		&ident.Tier,
		&ident.SubscriptionStatus,
		&ident.ProviderCustomerID,
		&ident.ProviderSubscriptionID,
		&ident.CreatedAt,
		&ident.LastValidatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ident, nil
}

func (s *IdentityDB) KeyExists(ctx context.Context, licenseKey string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM identities WHERE license_key = $1);
	`, licenseKey).Scan(&exists)
	return exists, err
}

func (s *IdentityDB) Insert(ctx context.Context, identity *models.Identity) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (
			id, license_key, email, tier, subscription_status,
			provider_customer_id, provider_subscription_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`,
		identity.ID,
		identity.LicenseKey,
		nullIfEmpty(identity.Email),
		identity.Tier,
		identity.SubscriptionStatus,
		nullIfEmpty(identity.ProviderCustomerID),
		nullIfEmpty(identity.ProviderSubscriptionID),
		identity.CreatedAt,
	)
	return err
}

func (s *IdentityDB) SetSubscription(ctx context.Context, id string, tier models.Tier, status models.SubscriptionStatus, customerID, subscriptionID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET tier = $1,
			subscription_status = $2,
			provider_customer_id = COALESCE($3, provider_customer_id),
			provider_subscription_id = COALESCE($4, provider_subscription_id)
		WHERE id = $5;
	`, tier, status, nullIfEmpty(customerID), nullIfEmpty(subscriptionID), id)
	return err
}

func (s *IdentityDB) TouchValidated(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE identities
		SET last_validated_at = $1
		WHERE id = $2;
	`, at, id)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
