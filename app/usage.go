package app

import (
	"context"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
)

const (
	LimitPerDay    = "per_day"
	LimitPerMinute = "per_minute"
)

// LimitCheck is the result of a quota evaluation.
type LimitCheck struct {
	Allowed   bool
	Used      int
	Limit     int
	LimitType string
}

// UsageMeter evaluates rolling-window request counts against tier limits.
// Counts are computed fresh from the ledger on every call; the read-then-act
// window between check and record is an accepted limitation, not something
// to paper over with ad-hoc locking.
type UsageMeter struct {
	Usage        UsageStore
	FreeDaily    int
	ProPerMinute int

	// now is swappable for tests.
	now func() time.Time
}

func NewUsageMeter(usage UsageStore, freeDaily, proPerMinute int) *UsageMeter {
	return &UsageMeter{
		Usage:        usage,
		FreeDaily:    freeDaily,
		ProPerMinute: proPerMinute,
		now:          time.Now,
	}
}

// CheckLimit counts ledger rows in the tier's window and compares against
// its limit. A store error fails closed: the caller must deny the request.
func (m *UsageMeter) CheckLimit(ctx context.Context, userID string, tier models.Tier) (LimitCheck, error) {
	now := m.now()

	var (
		since     time.Time
		limit     int
		limitType string
	)
	if tier == models.TierPro {
		since = now.Add(-60 * time.Second)
		limit = m.ProPerMinute
		limitType = LimitPerMinute
	} else {
		since = dayStartUTC(now)
		limit = m.FreeDaily
		limitType = LimitPerDay
	}

	used, err := m.Usage.CountSince(ctx, userID, since)
	if err != nil {
		return LimitCheck{}, err
	}

	return LimitCheck{
		Allowed:   used < limit,
		Used:      used,
		Limit:     limit,
		LimitType: limitType,
	}, nil
}

// dayStartUTC truncates t to the UTC calendar-day boundary.
func dayStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
