package app

import (
	"context"
	"sync"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
)

// In-memory fakes shared by the state-machine and handler tests.

type memIdentities struct {
	mu      sync.Mutex
	rows    []*models.Identity
	inserts int
}

func newMemIdentities(rows ...*models.Identity) *memIdentities {
	return &memIdentities{rows: rows}
}

func (m *memIdentities) find(match func(*models.Identity) bool) *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			clone := *r
			return &clone
		}
	}
	return nil
}

func (m *memIdentities) FindByKey(_ context.Context, key string) (*models.Identity, error) {
	return m.find(func(r *models.Identity) bool { return r.LicenseKey == key }), nil
}

func (m *memIdentities) FindByEmail(_ context.Context, email string) (*models.Identity, error) {
	return m.find(func(r *models.Identity) bool { return r.Email == email }), nil
}

func (m *memIdentities) FindByCustomerID(_ context.Context, id string) (*models.Identity, error) {
	return m.find(func(r *models.Identity) bool { return r.ProviderCustomerID == id }), nil
}

func (m *memIdentities) FindBySubscriptionID(_ context.Context, id string) (*models.Identity, error) {
	return m.find(func(r *models.Identity) bool { return r.ProviderSubscriptionID == id }), nil
}

func (m *memIdentities) KeyExists(_ context.Context, key string) (bool, error) {
	return m.find(func(r *models.Identity) bool { return r.LicenseKey == key }) != nil, nil
}

func (m *memIdentities) Insert(_ context.Context, ident *models.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *ident
	m.rows = append(m.rows, &clone)
	m.inserts++
	return nil
}

func (m *memIdentities) SetSubscription(_ context.Context, id string, tier models.Tier, status models.SubscriptionStatus, customerID, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			r.Tier = tier
			r.SubscriptionStatus = status
			if customerID != "" {
				r.ProviderCustomerID = customerID
			}
			if subscriptionID != "" {
				r.ProviderSubscriptionID = subscriptionID
			}
		}
	}
	return nil
}

func (m *memIdentities) TouchValidated(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			r.LastValidatedAt = at
		}
	}
	return nil
}

type memUsage struct {
	mu      sync.Mutex
	records []*models.UsageRecord
	err     error
}

func (m *memUsage) Insert(_ context.Context, rec *models.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	clone := *rec
	m.records = append(m.records, &clone)
	return nil
}

func (m *memUsage) CountSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	count := 0
	for _, r := range m.records {
		if r.UserID == userID && !r.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (m *memUsage) TotalsSince(_ context.Context, userID string, since time.Time) (*models.UsageTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	totals := &models.UsageTotals{}
	for _, r := range m.records {
		if r.UserID != userID || r.CreatedAt.Before(since) {
			continue
		}
		totals.Requests++
		totals.TotalTokens += r.InputTokens + r.OutputTokens
		totals.TotalCost += r.TotalCost
		if r.Cached {
			totals.CachedHits++
		}
	}
	return totals, nil
}

type memLedger struct {
	mu   sync.Mutex
	seen map[string]int64
	err  error
}

func newMemLedger() *memLedger {
	return &memLedger{seen: map[string]int64{}}
}

func (m *memLedger) Record(_ context.Context, eventID string, providerTS int64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.seen[eventID]; ok {
		return ErrDuplicateEvent
	}
	m.seen[eventID] = providerTS
	return nil
}

type recordingMailer struct {
	mu    sync.Mutex
	sends []string
}

func (m *recordingMailer) SendLicenseKey(_ context.Context, email, key, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, kind+":"+email+":"+key)
	return nil
}

type stubResolver struct {
	emails map[string]string
}

func (r stubResolver) CustomerEmail(_ context.Context, customerID string) (string, error) {
	return r.emails[customerID], nil
}

type stubGateway struct {
	result *CompletionResult
	err    error
}

func (g stubGateway) Complete(_ context.Context, _ CompletionRequest) (*CompletionResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}
