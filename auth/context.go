// Package auth resolves LicenseKey bearer credentials against the license
// directory and enforces them on protected routes.
package auth

import (
	"context"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
)

type ctxKey int

const identityKey ctxKey = iota

// WithIdentity stores the authenticated identity in a context.
func WithIdentity(ctx context.Context, ident *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext returns the authenticated identity from a context.
func IdentityFromContext(ctx context.Context) (*models.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(*models.Identity)
	return ident, ok
}
