package app

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/auth"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"
	portal "github.com/stripe/stripe-go/v79/billingportal/session"
	"github.com/stripe/stripe-go/v79/checkout/session"
)

// StripeWebhook verifies and applies provider subscription events.
//
// Status mapping: 400 for anything the provider cannot fix by retrying
// (bad signature, stale timestamp, malformed payload), 200 for duplicates
// (no-op success — the event was already applied), 500 only for store or
// infrastructure failures where a retry is safe.
func (a *App) StripeWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("stripe webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	ctx := c.Request.Context()

	event, err := a.Verifier.Verify(ctx, body, sigHeader)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateEvent):
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		case errIsVerify(err):
			log.Printf("stripe webhook rejected: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		default:
			log.Printf("stripe webhook ledger failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		}
		return
	}

	if err := a.Subs.Apply(ctx, event); err != nil {
		if errIsVerify(err) {
			log.Printf("stripe webhook bad payload type=%s err=%v", event.Type, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
			return
		}
		log.Printf("stripe webhook apply failed type=%s err=%v", event.Type, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

type checkoutRequest struct {
	Email string `json:"email"`
}

// CreateCheckoutSession starts a Stripe Checkout Session for an email. The
// identity is provisioned by the checkout.session.completed webhook, so no
// account needs to exist yet.
func (a *App) CreateCheckoutSession(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	email := normalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	priceID := a.Stripe.PriceIDProMonthly
	frontendURL := strings.TrimRight(a.Stripe.FrontendURL, "/")
	if priceID == "" || frontendURL == "" {
		log.Printf("missing Stripe config: price_id=%t frontend_url=%t", priceID != "", frontendURL != "")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
	}

	sess, err := session.New(params)
	if err != nil {
		log.Printf("stripe checkout session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}

// CreatePortalSession creates a Stripe Customer Portal session for the
// authenticated identity.
func (a *App) CreatePortalSession(c *gin.Context) {
	ident, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if ident.ProviderCustomerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no billing customer for this key"})
		return
	}

	frontendURL := strings.TrimRight(a.Stripe.FrontendURL, "/")
	if frontendURL == "" {
		log.Printf("missing Stripe config: frontend_url=false")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(ident.ProviderCustomerID),
		ReturnURL: stripe.String(frontendURL + "/settings/billing"),
	}

	sess, err := portal.New(params)
	if err != nil {
		log.Printf("stripe portal session failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create portal session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": sess.URL})
}
