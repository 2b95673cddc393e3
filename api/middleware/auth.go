package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/models"
)

// ctxAPIKey is the context key under which the authenticated API key is
// stored for downstream middleware (the rate limiter keys on it).
const ctxAPIKey = "api_key"

// Auth returns an API-key check for the protected route group. Clients
// may send the key either as `X-API-Key: <key>` or as
// `Authorization: Bearer <key>`. With no configured keys the check is
// disabled and every request passes.
func Auth(apiKeys []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			allowed[k] = true
		}
	}

	if len(allowed) == 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		key, ok := clientKey(c)
		switch {
		case !ok:
			unauthorized(c, "missing API key: send X-API-Key or Authorization: Bearer")
		case !allowed[key]:
			unauthorized(c, "invalid API key")
		default:
			c.Set(ctxAPIKey, key)
			c.Next()
		}
	}
}

// clientKey pulls the API key out of the request headers. X-API-Key
// wins over the Authorization header when both are present.
func clientKey(c *gin.Context) (string, bool) {
	if k := c.GetHeader("X-API-Key"); k != "" {
		return k, true
	}
	auth := c.GetHeader("Authorization")
	if bearer, found := strings.CutPrefix(auth, "Bearer "); found && bearer != "" {
		return bearer, true
	}
	return "", false
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": models.ErrorDetail{
			Code:    models.ErrCodeUnauthorized,
			Message: msg,
		},
	})
}
