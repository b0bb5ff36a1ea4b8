package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
)

// Scheme is the Authorization header scheme for license-key credentials.
const Scheme = "LicenseKey"

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// KeyLookup is the slice of the license directory the authenticator needs.
type KeyLookup interface {
	FindByKey(ctx context.Context, licenseKey string) (*models.Identity, error)
	TouchValidated(ctx context.Context, id string, at time.Time) error
}

// Authenticator resolves a bearer credential to an identity. Lookups are by
// unique index, never by comparing against a single expected value, so no
// constant-time comparison is involved here.
type Authenticator struct {
	Directory KeyLookup
}

func NewAuthenticator(directory KeyLookup) *Authenticator {
	return &Authenticator{Directory: directory}
}

// Authenticate strips the LicenseKey scheme, normalizes the key and looks it
// up verbatim. It returns (nil, nil) — not an error — for missing, malformed
// or unknown credentials; callers translate that into a 401 at the boundary.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*models.Identity, error) {
	key, ok := extractLicenseKey(credential)
	if !ok {
		return nil, nil
	}
	return a.Directory.FindByKey(ctx, key)
}

// Validate authenticates and additionally stamps lastValidatedAt.
func (a *Authenticator) Validate(ctx context.Context, licenseKey string) (*models.Identity, error) {
	key, ok := NormalizeKey(licenseKey)
	if !ok {
		return nil, nil
	}
	ident, err := a.Directory.FindByKey(ctx, key)
	if err != nil || ident == nil {
		return nil, err
	}
	if err := a.Directory.TouchValidated(ctx, ident.ID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return ident, nil
}

// extractLicenseKey parses an "Authorization: LicenseKey <KEY>" value.
func extractLicenseKey(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], Scheme) {
		return "", false
	}
	return NormalizeKey(parts[1])
}

// NormalizeKey strips whitespace, uppercases and shape-checks a raw key.
func NormalizeKey(raw string) (string, bool) {
	key := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if !keyPattern.MatchString(key) {
		return "", false
	}
	return key, true
}
