package app

import (
	"context"
	"database/sql"
	"log"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/config"
	"github.com/TheSuperiorFlash/CaptureAI-sub000/auth"
)

// App holds the request-scoped handler dependencies. Everything is
// constructor-injected; there are no package-level singletons.
type App struct {
	Identities IdentityStore
	Usage      UsageStore
	Meter      *UsageMeter
	Pricing    *Pricing
	Gateway    Gateway
	Verifier   *WebhookVerifier
	Subs       *Subscriptions
	Auth       *auth.Authenticator
	Mail       Mailer
	Stripe     config.StripeConfig
}

// NewApp builds the production dependency graph on top of an open database
// handle.
func NewApp(cfg *config.Config, db *sql.DB) *App {
	identities := NewIdentityDB(db)
	usage := NewUsageDB(db)
	webhooks := NewWebhookDB(db)
	pricing := DefaultPricing()

	var mail Mailer = LogMailer{}
	if cfg.QueueURL != "" {
		qm, err := NewQueueMailer(context.Background(), cfg.QueueURL)
		if err != nil {
			log.Printf("mail queue init failed, falling back to log mailer: %v", err)
		} else {
			mail = qm
		}
	}

	return &App{
		Identities: identities,
		Usage:      usage,
		Meter:      NewUsageMeter(usage, cfg.Limits.FreeDaily, cfg.Limits.ProPerMinute),
		Pricing:    pricing,
		Gateway:    NewHTTPGateway(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.Timeout),
		Verifier:   NewWebhookVerifier(cfg.Stripe.WebhookSecret, webhooks),
		Subs:       NewSubscriptions(identities, StripeCustomerResolver{}, mail),
		Auth:       auth.NewAuthenticator(identities),
		Mail:       mail,
		Stripe:     cfg.Stripe,
	}
}
