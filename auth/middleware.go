package auth

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware enforces LicenseKey bearer auth and injects the resolved
// identity into the request context. Responses never leak which part of the
// credential failed.
func Middleware(authenticator *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticator == nil {
			respondUnauthorized(c)
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			log.Printf("auth failure: missing Authorization header path=%s", c.Request.URL.Path)
			respondUnauthorized(c)
			return
		}

		ident, err := authenticator.Authenticate(c.Request.Context(), header)
		if err != nil {
			log.Printf("auth failure: directory lookup path=%s err=%v", c.Request.URL.Path, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
			return
		}
		if ident == nil {
			log.Printf("auth failure: invalid license key path=%s", c.Request.URL.Path)
			respondUnauthorized(c)
			return
		}

		ctx := WithIdentity(c.Request.Context(), ident)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": "invalid license key",
	})
}
