package app

import (
	"log"
	"net/http"
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/app/models"
	"github.com/TheSuperiorFlash/CaptureAI-sub000/auth"

	"github.com/gin-gonic/gin"
)

type completeRequest struct {
	Question       string `json:"question"`
	ImageData      string `json:"imageData"`
	PromptType     string `json:"promptType"`
	ReasoningLevel string `json:"reasoningLevel"`
}

// Complete runs the metered completion path: quota check, provider call,
// cost accounting, ledger append.
func (a *App) Complete(c *gin.Context) {
	ident, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Question == "" && req.ImageData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question or imageData required"})
		return
	}
	if req.ReasoningLevel == "" {
		req.ReasoningLevel = "low"
	}
	if req.PromptType == "" {
		req.PromptType = "question"
	}

	ctx := c.Request.Context()

	// Quota check runs before the costly completion call. A store failure
	// fails closed: the request is denied rather than waved through.
	check, err := a.Meter.CheckLimit(ctx, ident.ID, ident.Tier)
	if err != nil {
		log.Printf("quota check failed user=%s err=%v", ident.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage check unavailable"})
		return
	}
	if !check.Allowed {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "quota exceeded",
			"limit":     check.Limit,
			"used":      check.Used,
			"limitType": check.LimitType,
		})
		return
	}

	result, err := a.Gateway.Complete(ctx, CompletionRequest{
		Model:     a.Pricing.UpstreamModel(req.ReasoningLevel),
		Question:  req.Question,
		ImageData: req.ImageData,
	})
	if err != nil {
		log.Printf("completion failed user=%s err=%v", ident.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "completion failed"})
		return
	}

	cost := a.Pricing.ComputeCost(req.ReasoningLevel, result.InputTokens, result.OutputTokens, result.CachedTokens)

	rec := &models.UsageRecord{
		UserID:          ident.ID,
		PromptType:      req.PromptType,
		Model:           req.ReasoningLevel,
		InputTokens:     result.InputTokens,
		OutputTokens:    result.OutputTokens,
		ReasoningTokens: result.ReasoningTokens,
		CachedTokens:    result.CachedTokens,
		TotalCost:       cost,
		ResponseTimeMs:  result.ResponseTime.Milliseconds(),
		Cached:          result.Cached,
		CreatedAt:       time.Now().UTC(),
	}
	if err := a.Usage.Insert(ctx, rec); err != nil {
		// Losing one ledger row beats making the user retry a completed,
		// already-paid-for call.
		log.Printf("usage record insert failed user=%s err=%v", ident.ID, err)
	}

	var remainingToday any
	if check.LimitType == LimitPerDay {
		remaining := check.Limit - check.Used - 1
		if remaining < 0 {
			remaining = 0
		}
		remainingToday = remaining
	}

	c.JSON(http.StatusOK, gin.H{
		"answer": result.Answer,
		"usage": gin.H{
			"tokensUsed":     result.InputTokens + result.OutputTokens,
			"remainingToday": remainingToday,
			"limitType":      check.LimitType,
		},
		"cached":       result.Cached,
		"responseTime": result.ResponseTime.Milliseconds(),
		"model":        req.ReasoningLevel,
	})
}

// GetUsage returns the tier-specific usage snapshot for the authenticated
// identity, derived entirely from the ledger.
func (a *App) GetUsage(c *gin.Context) {
	ident, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx := c.Request.Context()

	check, err := a.Meter.CheckLimit(ctx, ident.ID, ident.Tier)
	if err != nil {
		log.Printf("usage snapshot failed user=%s err=%v", ident.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage unavailable"})
		return
	}

	totals, err := a.Usage.TotalsSince(ctx, ident.ID, dayStartUTC(time.Now()))
	if err != nil {
		log.Printf("usage totals failed user=%s err=%v", ident.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage unavailable"})
		return
	}

	remaining := check.Limit - check.Used
	if remaining < 0 {
		remaining = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":               ident.Tier,
		"subscriptionStatus": ident.SubscriptionStatus,
		"limitType":          check.LimitType,
		"used":               check.Used,
		"limit":              check.Limit,
		"remaining":          remaining,
		"today": gin.H{
			"requests":      totals.Requests,
			"totalTokens":   totals.TotalTokens,
			"totalCost":     totals.TotalCost,
			"cachedHits":    totals.CachedHits,
			"avgResponseMs": totals.AvgLatencyMs,
		},
	})
}
