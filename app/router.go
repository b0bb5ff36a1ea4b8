package app

import (
	"time"

	"github.com/TheSuperiorFlash/CaptureAI-sub000/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter(a *App) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", a.Health)
	router.POST("/auth/create-free-key", a.CreateFreeKey)
	router.POST("/auth/validate-key", a.ValidateKey)
	router.POST("/subscription/webhook", a.StripeWebhook)
	router.POST("/subscription/create-checkout-session", a.CreateCheckoutSession)

	protected := router.Group("/")
	protected.Use(auth.Middleware(a.Auth))
	protected.POST("/ai/complete", a.Complete)
	protected.GET("/ai/usage", a.GetUsage)
	protected.POST("/subscription/portal-session", a.CreatePortalSession)

	return router
}
