package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/asterdex/astergate/internal/config"
	"github.com/asterdex/astergate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

const (
	HeaderGatewayKey = "X-Gateway-Key"
	ContextClientKey = "client"
)

// AuthMiddleware checks the gateway API key and records a client identity
// used by rate limiting and idempotency. Without a configured key every
// caller is identified by IP.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		expected := ""
		required := false
		if cfg != nil {
			expected = cfg.Auth.APIKey
			required = cfg.Auth.RequireAPIKey
		}

		if apiKey == "" {
			if required {
				c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing API key", nil))
				c.Abort()
				return
			}
			c.Set(ContextClientKey, "ip:"+c.ClientIP())
			c.Next()
			return
		}

		if expected == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid API key", nil))
			c.Abort()
			return
		}

		c.Set(ContextClientKey, "key:"+keyFingerprint(apiKey))
		c.Next()
	}
}

// ClientID returns the identity set by AuthMiddleware, falling back to the
// client IP.
func ClientID(c *gin.Context) string {
	if v, ok := c.Get(ContextClientKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	return "ip:" + c.ClientIP()
}

func keyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
