package app

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func makeEvent(id, eventType, raw string) *stripe.Event {
	return &stripe.Event{
		ID:   id,
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func proIdentity(id, email string) *models.Identity {
	return &models.Identity{
		ID:                 id,
		LicenseKey:         "AAAA-BBBB-CCCC-DDDD-EEEE",
		Email:              email,
		Tier:               models.TierPro,
		SubscriptionStatus: models.StatusActive,
		CreatedAt:          time.Now().UTC(),
	}
}

func TestCheckoutCompletedExistingIdentity(t *testing.T) {
	existing := &models.Identity{
		ID:                 "id-1",
		LicenseKey:         "AAAA-BBBB-CCCC-DDDD-EEEE",
		Email:              "user@example.com",
		Tier:               models.TierFree,
		SubscriptionStatus: models.StatusInactive,
	}
	idents := newMemIdentities(existing)
	mail := &recordingMailer{}
	subs := NewSubscriptions(idents, stubResolver{}, mail)

	event := makeEvent("evt_1", "checkout.session.completed", `{
		"id": "cs_1",
		"customer": {"id": "cus_1"},
		"subscription": {"id": "sub_1"},
		"customer_details": {"email": "user@example.com"}
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "user@example.com")
	require.NotNil(t, got)
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
	assert.Equal(t, "cus_1", got.ProviderCustomerID)
	assert.Equal(t, "sub_1", got.ProviderSubscriptionID)
	// the existing key is resent, not regenerated
	assert.Equal(t, "AAAA-BBBB-CCCC-DDDD-EEEE", got.LicenseKey)
	require.Len(t, mail.sends, 1)
	assert.Contains(t, mail.sends[0], MailKindResendKey)
}

func TestCheckoutCompletedNewIdentity(t *testing.T) {
	idents := newMemIdentities()
	mail := &recordingMailer{}
	subs := NewSubscriptions(idents, stubResolver{}, mail)

	event := makeEvent("evt_1", "checkout.session.completed", `{
		"id": "cs_1",
		"customer": {"id": "cus_9"},
		"subscription": {"id": "sub_9"},
		"customer_details": {"email": "new@example.com"}
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "new@example.com")
	require.NotNil(t, got)
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
	assert.Regexp(t, KeyPattern, got.LicenseKey)
	assert.Equal(t, "cus_9", got.ProviderCustomerID)
	assert.Equal(t, 1, idents.inserts)
	require.Len(t, mail.sends, 1)
	assert.Contains(t, mail.sends[0], MailKindNewKey)
}

func TestCheckoutCompletedResolvesEmailFromCustomer(t *testing.T) {
	idents := newMemIdentities()
	mail := &recordingMailer{}
	subs := NewSubscriptions(idents, stubResolver{emails: map[string]string{"cus_7": "looked-up@example.com"}}, mail)

	event := makeEvent("evt_1", "checkout.session.completed", `{
		"id": "cs_1",
		"customer": {"id": "cus_7"}
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "looked-up@example.com")
	require.NotNil(t, got)
	assert.Equal(t, models.TierPro, got.Tier)
}

func TestInvoicePaymentSucceeded(t *testing.T) {
	ident := proIdentity("id-1", "user@example.com")
	ident.Tier = models.TierFree
	ident.SubscriptionStatus = models.StatusPastDue
	idents := newMemIdentities(ident)
	subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

	event := makeEvent("evt_2", "invoice.payment_succeeded", `{
		"id": "in_1",
		"customer_email": "user@example.com"
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "user@example.com")
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
}

func TestInvoicePaymentFailedKeepsTier(t *testing.T) {
	idents := newMemIdentities(proIdentity("id-1", "user@example.com"))
	subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

	event := makeEvent("evt_3", "invoice.payment_failed", `{
		"id": "in_2",
		"customer_email": "user@example.com"
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "user@example.com")
	assert.Equal(t, models.TierPro, got.Tier, "tier unchanged on payment failure")
	assert.Equal(t, models.StatusPastDue, got.SubscriptionStatus)
}

func TestSubscriptionDeleted(t *testing.T) {
	ident := proIdentity("id-1", "user@example.com")
	ident.ProviderSubscriptionID = "sub_1"
	idents := newMemIdentities(ident)
	subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

	event := makeEvent("evt_4", "customer.subscription.deleted", `{
		"id": "sub_1",
		"status": "canceled"
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindBySubscriptionID(context.Background(), "sub_1")
	assert.Equal(t, models.TierFree, got.Tier)
	assert.Equal(t, models.StatusCancelled, got.SubscriptionStatus)
}

func TestSubscriptionUpdated(t *testing.T) {
	t.Run("active reinstates pro", func(t *testing.T) {
		ident := proIdentity("id-1", "user@example.com")
		ident.Tier = models.TierFree
		ident.SubscriptionStatus = models.StatusInactive
		ident.ProviderSubscriptionID = "sub_1"
		idents := newMemIdentities(ident)
		subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

		event := makeEvent("evt_5", "customer.subscription.updated", `{
			"id": "sub_1",
			"status": "active"
		}`)
		require.NoError(t, subs.Apply(context.Background(), event))

		got, _ := idents.FindBySubscriptionID(context.Background(), "sub_1")
		assert.Equal(t, models.TierPro, got.Tier)
		assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
	})

	t.Run("non-active downgrades", func(t *testing.T) {
		ident := proIdentity("id-1", "user@example.com")
		ident.ProviderSubscriptionID = "sub_1"
		idents := newMemIdentities(ident)
		subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

		event := makeEvent("evt_6", "customer.subscription.updated", `{
			"id": "sub_1",
			"status": "unpaid"
		}`)
		require.NoError(t, subs.Apply(context.Background(), event))

		got, _ := idents.FindBySubscriptionID(context.Background(), "sub_1")
		assert.Equal(t, models.TierFree, got.Tier)
		assert.Equal(t, models.StatusInactive, got.SubscriptionStatus)
	})
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	idents := newMemIdentities(proIdentity("id-1", "user@example.com"))
	subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

	event := makeEvent("evt_7", "charge.refunded", `{"id": "ch_1"}`)
	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "user@example.com")
	assert.Equal(t, models.TierPro, got.Tier)
}

func TestInvoiceEventUnknownEmailIsNoOp(t *testing.T) {
	idents := newMemIdentities()
	subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

	event := makeEvent("evt_8", "invoice.payment_succeeded", `{
		"id": "in_3",
		"customer_email": "stranger@example.com"
	}`)
	require.NoError(t, subs.Apply(context.Background(), event))
	assert.Equal(t, 0, idents.inserts)
}

func TestCheckoutCompletedMixedCaseEmail(t *testing.T) {
	// Emails are stored lowercased at issuance; the provider may echo them
	// back with arbitrary casing. That must still upgrade the existing row,
	// not provision a second one.
	existing := &models.Identity{
		ID:                 "id-1",
		LicenseKey:         "AAAA-BBBB-CCCC-DDDD-EEEE",
		Email:              "user@example.com",
		Tier:               models.TierFree,
		SubscriptionStatus: models.StatusInactive,
	}
	idents := newMemIdentities(existing)
	mail := &recordingMailer{}
	subs := NewSubscriptions(idents, stubResolver{}, mail)

	event := makeEvent("evt_9", "checkout.session.completed", `{
		"id": "cs_1",
		"customer": {"id": "cus_1"},
		"subscription": {"id": "sub_1"},
		"customer_details": {"email": "User@Example.com"}
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "user@example.com")
	require.NotNil(t, got)
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
	assert.Equal(t, 0, idents.inserts, "mixed-case email must not create a second identity")
	require.Len(t, mail.sends, 1)
	assert.Contains(t, mail.sends[0], MailKindResendKey)
}

func TestCheckoutNewIdentityStoresLowercasedEmail(t *testing.T) {
	idents := newMemIdentities()
	subs := NewSubscriptions(idents, stubResolver{emails: map[string]string{"cus_2": "Resolved@Example.com"}}, &recordingMailer{})

	event := makeEvent("evt_10", "checkout.session.completed", `{
		"id": "cs_2",
		"customer": {"id": "cus_2"}
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "resolved@example.com")
	require.NotNil(t, got, "resolved email must be stored lowercased")
	assert.Equal(t, "resolved@example.com", got.Email)
}

func TestInvoiceMixedCaseEmailMatchesIdentity(t *testing.T) {
	ident := proIdentity("id-1", "user@example.com")
	ident.SubscriptionStatus = models.StatusPastDue
	idents := newMemIdentities(ident)
	subs := NewSubscriptions(idents, stubResolver{}, &recordingMailer{})

	event := makeEvent("evt_11", "invoice.payment_succeeded", `{
		"id": "in_4",
		"customer_email": "User@Example.com"
	}`)

	require.NoError(t, subs.Apply(context.Background(), event))

	got, _ := idents.FindByEmail(context.Background(), "user@example.com")
	assert.Equal(t, models.TierPro, got.Tier)
	assert.Equal(t, models.StatusActive, got.SubscriptionStatus, "mixed-case invoice email must reach the stored identity")
}
