// README: Bearer-token auth middleware; resolves the caller's uid.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trailquest/internal/infra"
	"trailquest/internal/types"
)

const callerUIDKey = "caller_uid"

// Auth verifies the bearer token with verifier and stores the caller's uid
// on the context. Requests without a valid token are aborted with 401.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(callerUIDKey, types.ID(token.UID))
		c.Next()
	}
}

// CallerUID returns the authenticated uid, or "" outside Auth.
func CallerUID(c *gin.Context) types.ID {
	v, ok := c.Get(callerUIDKey)
	if !ok {
		return ""
	}
	uid, _ := v.(types.ID)
	return uid
}
