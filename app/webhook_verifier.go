package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Freshness bounds are intentionally asymmetric: a larger backward tolerance
// absorbs provider and network delay, a small forward tolerance limits
// clock-skew abuse.
const (
	maxEventAge    = 120 // seconds
	maxClockAhead  = 30  // seconds
	signatureParts = 2
)

// VerifyError marks a webhook that must be rejected with a 400 and not
// retried: bad signature, stale timestamp or malformed payload.
type VerifyError struct {
	Reason string
}

func (e VerifyError) Error() string {
	return "webhook verification failed: " + e.Reason
}

func verifyFailf(format string, args ...any) error {
	return VerifyError{Reason: fmt.Sprintf(format, args...)}
}

// WebhookVerifier authenticates inbound provider webhooks and guards
// against replays via the webhook ledger.
type WebhookVerifier struct {
	Secret string
	Ledger WebhookStore

	now func() time.Time
}

func NewWebhookVerifier(secret string, ledger WebhookStore) *WebhookVerifier {
	return &WebhookVerifier{Secret: secret, Ledger: ledger, now: time.Now}
}

// Verify checks the signature header against the raw body, enforces the
// freshness window, and records the event id in the ledger before returning.
// The ledger write commits ahead of any caller side effect, so a redelivery
// observed after success surfaces as ErrDuplicateEvent.
//
// The signature must be computed over the raw request bytes; any
// re-serialization before this call invalidates it.
func (v *WebhookVerifier) Verify(ctx context.Context, rawBody []byte, signatureHeader string) (*stripe.Event, error) {
	t, sig, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	now := v.now().Unix()
	diff := now - t
	if diff > maxEventAge {
		return nil, verifyFailf("timestamp too old (%ds)", diff)
	}
	if diff < -maxClockAhead {
		return nil, verifyFailf("timestamp in the future (%ds ahead)", -diff)
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	fmt.Fprintf(mac, "%d.", t)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	// hmac.Equal is constant-time for equal lengths and rejects mismatched
	// lengths without comparing content.
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return nil, verifyFailf("signature mismatch")
	}

	var event stripe.Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, verifyFailf("invalid event payload: %v", err)
	}
	if event.ID == "" {
		return nil, verifyFailf("event missing id")
	}

	if err := v.Ledger.Record(ctx, event.ID, t, v.now()); err != nil {
		// ErrDuplicateEvent passes through; anything else is a store failure.
		return nil, err
	}

	return &event, nil
}

// parseSignatureHeader splits "t=<unix-seconds>,v1=<hex>" into its parts.
func parseSignatureHeader(header string) (int64, string, error) {
	parts := strings.Split(header, ",")
	if len(parts) < signatureParts {
		return 0, "", verifyFailf("malformed signature header")
	}

	var tRaw, sig string
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			tRaw = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if tRaw == "" || sig == "" {
		return 0, "", verifyFailf("signature header missing t or v1")
	}

	t, err := strconv.ParseInt(tRaw, 10, 64)
	if err != nil || t <= 0 {
		return 0, "", verifyFailf("invalid timestamp %q", tRaw)
	}

	return t, sig, nil
}
