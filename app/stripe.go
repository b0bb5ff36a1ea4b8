package app

import (
	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/config"

	"github.com/stripe/stripe-go/v79"
)

// InitStripe wires the Stripe API key for the package-level SDK clients
// (checkout, portal, customer lookup).
func InitStripe(cfg *config.Config) {
	stripe.Key = cfg.Stripe.SecretKey
}
