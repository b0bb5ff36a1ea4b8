package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/customer"
)

// CustomerResolver looks up a customer's email when the event payload does
// not carry one. The real implementation calls the payment provider.
type CustomerResolver interface {
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// StripeCustomerResolver resolves customer emails through the Stripe API.
type StripeCustomerResolver struct{}

func (StripeCustomerResolver) CustomerEmail(_ context.Context, customerID string) (string, error) {
	cust, err := customer.Get(customerID, nil)
	if err != nil {
		return "", err
	}
	return cust.Email, nil
}

// Subscriptions applies verified provider events to the license directory,
// transitioning tier and status and provisioning new identities on first
// checkout.
type Subscriptions struct {
	Identities IdentityStore
	Customers  CustomerResolver
	Mail       Mailer
}

func NewSubscriptions(identities IdentityStore, customers CustomerResolver, mail Mailer) *Subscriptions {
	return &Subscriptions{Identities: identities, Customers: customers, Mail: mail}
}

// Apply dispatches a verified event to its transition handler. Event types
// without a handler are accepted and ignored; the verifier has already
// ledger-recorded them, so forward compatibility never fails the endpoint.
func (s *Subscriptions) Apply(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "invoice.payment_succeeded":
		return s.handleInvoice(ctx, event, models.TierPro, models.StatusActive, false)
	case "invoice.payment_failed":
		return s.handleInvoice(ctx, event, "", models.StatusPastDue, true)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, event)
	default:
		return nil
	}
}

func (s *Subscriptions) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return verifyFailf("invalid session payload: %v", err)
	}

	customerID := ""
	if sess.Customer != nil {
		customerID = sess.Customer.ID
	}
	subscriptionID := ""
	if sess.Subscription != nil {
		subscriptionID = sess.Subscription.ID
	}

	email := normalizeEmail(checkoutEmail(&sess))
	if email == "" && customerID != "" {
		resolved, err := s.Customers.CustomerEmail(ctx, customerID)
		if err != nil {
			return fmt.Errorf("resolve customer email: %w", err)
		}
		email = normalizeEmail(resolved)
	}
	if email == "" && customerID == "" {
		return verifyFailf("session carries neither email nor customer id")
	}

	ident, err := s.findCheckoutIdentity(ctx, email, customerID)
	if err != nil {
		return err
	}

	if ident != nil {
		if err := s.Identities.SetSubscription(ctx, ident.ID, models.TierPro, models.StatusActive, customerID, subscriptionID); err != nil {
			return err
		}
		s.sendKey(ctx, email, ident.LicenseKey, MailKindResendKey)
		return nil
	}

	key, err := GenerateUniqueKey(ctx, s.Identities)
	if err != nil {
		return err
	}
	newIdent := &models.Identity{
		ID:                     uuid.NewString(),
		LicenseKey:             key,
		Email:                  email,
		Tier:                   models.TierPro,
		SubscriptionStatus:     models.StatusActive,
		ProviderCustomerID:     customerID,
		ProviderSubscriptionID: subscriptionID,
		CreatedAt:              time.Now().UTC(),
	}
	if err := s.Identities.Insert(ctx, newIdent); err != nil {
		return err
	}
	s.sendKey(ctx, email, key, MailKindNewKey)
	return nil
}

func (s *Subscriptions) findCheckoutIdentity(ctx context.Context, email, customerID string) (*models.Identity, error) {
	if email != "" {
		ident, err := s.Identities.FindByEmail(ctx, email)
		if err != nil || ident != nil {
			return ident, err
		}
	}
	if customerID != "" {
		return s.Identities.FindByCustomerID(ctx, customerID)
	}
	return nil, nil
}

// handleInvoice matches the identity by the invoice's customer email. When
// keepTier is set the tier is left unchanged (payment failure parks the
// account in past_due without a downgrade).
func (s *Subscriptions) handleInvoice(ctx context.Context, event *stripe.Event, tier models.Tier, status models.SubscriptionStatus, keepTier bool) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return verifyFailf("invalid invoice payload: %v", err)
	}
	email := normalizeEmail(inv.CustomerEmail)
	if email == "" {
		log.Printf("invoice event %s missing customer email; skipping", event.ID)
		return nil
	}

	ident, err := s.Identities.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if ident == nil {
		log.Printf("invoice event %s: no identity for email; skipping", event.ID)
		return nil
	}

	if keepTier {
		tier = ident.Tier
	}
	return s.Identities.SetSubscription(ctx, ident.ID, tier, status, "", "")
}

func (s *Subscriptions) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	sub, err := unmarshalSubscription(event)
	if err != nil {
		return err
	}

	ident, err := s.Identities.FindBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return err
	}
	if ident == nil {
		log.Printf("subscription.deleted %s: no identity for subscription; skipping", event.ID)
		return nil
	}
	return s.Identities.SetSubscription(ctx, ident.ID, models.TierFree, models.StatusCancelled, "", "")
}

func (s *Subscriptions) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	sub, err := unmarshalSubscription(event)
	if err != nil {
		return err
	}

	ident, err := s.Identities.FindBySubscriptionID(ctx, sub.ID)
	if err != nil {
		return err
	}
	if ident == nil {
		log.Printf("subscription.updated %s: no identity for subscription; skipping", event.ID)
		return nil
	}

	tier := models.TierFree
	status := models.StatusInactive
	if sub.Status == stripe.SubscriptionStatusActive {
		tier = models.TierPro
		status = models.StatusActive
	}
	return s.Identities.SetSubscription(ctx, ident.ID, tier, status, "", "")
}

func unmarshalSubscription(event *stripe.Event) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, verifyFailf("invalid subscription payload: %v", err)
	}
	if sub.ID == "" {
		return nil, verifyFailf("subscription payload missing id")
	}
	return &sub, nil
}

func checkoutEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}

// sendKey delivers a license key by email, best-effort. Entitlement has
// already been persisted; losing the email must not fail the webhook.
func (s *Subscriptions) sendKey(ctx context.Context, email, key, kind string) {
	if email == "" || s.Mail == nil {
		return
	}
	if err := s.Mail.SendLicenseKey(ctx, email, key, kind); err != nil {
		log.Printf("license key email failed for %s: %v", email, err)
	}
}

// errIsVerify reports whether err belongs to the 400-class verification
// taxonomy rather than an infrastructure failure.
func errIsVerify(err error) bool {
	var ve VerifyError
	return errors.As(err, &ve)
}
