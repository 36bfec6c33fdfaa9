package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dexgate/dexgate/internal/config"
)

const APIKeyHeader = "X-API-Key"

// AuthMiddleware checks the configured API key. When no key is required the
// gateway is open (local/dev deployments).
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Auth.RequireAPIKey {
			c.Next()
			return
		}

		provided := c.GetHeader(APIKeyHeader)
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.Auth.APIKey)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing api key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
