package app

import (
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Health is a public health check endpoint.
func (a *App) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// normalizeEmail canonicalizes an email for storage and lookup. Every email
// entering the directory goes through this, including provider-supplied ones;
// mixed-case lookups against stored rows must never miss.
func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

type createFreeKeyRequest struct {
	Email string `json:"email"`
}

// CreateFreeKey issues a free-tier license key for an email, or returns the
// existing key when that email was already issued one.
func (a *App) CreateFreeKey(c *gin.Context) {
	var req createFreeKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	email := normalizeEmail(req.Email)
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	ctx := c.Request.Context()
	existing, err := a.Identities.FindByEmail(ctx, email)
	if err != nil {
		log.Printf("free key lookup failed for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue key"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, gin.H{
			"licenseKey": existing.LicenseKey,
			"tier":       existing.Tier,
			"existing":   true,
		})
		return
	}

	key, err := GenerateUniqueKey(ctx, a.Identities)
	if err != nil {
		log.Printf("free key generation failed for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue key"})
		return
	}

	ident := &models.Identity{
		ID:                 uuid.NewString(),
		LicenseKey:         key,
		Email:              email,
		Tier:               models.TierFree,
		SubscriptionStatus: models.StatusInactive,
		CreatedAt:          time.Now().UTC(),
	}
	if err := a.Identities.Insert(ctx, ident); err != nil {
		log.Printf("free key insert failed for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue key"})
		return
	}

	if err := a.Mail.SendLicenseKey(ctx, email, key, MailKindNewKey); err != nil {
		log.Printf("free key email failed for %s: %v", email, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"licenseKey": key,
		"tier":       models.TierFree,
	})
}

type validateKeyRequest struct {
	LicenseKey string `json:"licenseKey"`
}

// ValidateKey checks a raw license key and stamps lastValidatedAt on success.
func (a *App) ValidateKey(c *gin.Context) {
	var req validateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ident, err := a.Auth.Validate(c.Request.Context(), req.LicenseKey)
	if err != nil {
		log.Printf("key validation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation unavailable"})
		return
	}
	if ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid license key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":              true,
		"tier":               ident.Tier,
		"subscriptionStatus": ident.SubscriptionStatus,
	})
}
