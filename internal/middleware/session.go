package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"marketready/internal/auth"
)

const SessionCookie = "session"

const claimsContextKey = "sessionClaims"

// SessionClaims resolves the request's session from the session cookie, a
// bearer token, or the token query parameter. The query fallback exists
// for websocket upgrades, where browser clients cannot attach headers or
// cross-origin cookies. Returns nil when the visitor is unauthenticated
// or the token fails verification.
func SessionClaims(c *gin.Context, cfg auth.TokenConfig) *auth.Claims {
	if cached, ok := c.Get(claimsContextKey); ok {
		claims, _ := cached.(*auth.Claims)
		return claims
	}

	token, err := c.Cookie(SessionCookie)
	if err != nil || token == "" {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return nil
	}

	claims, err := auth.VerifyToken(token, cfg)
	if err != nil {
		return nil
	}
	c.Set(claimsContextKey, claims)
	return claims
}

// RequireSession aborts with 401 when no valid session is present and
// stores the claims in the request context.
func RequireSession(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := SessionClaims(c, cfg)
		if claims == nil {
			c.JSON(401, gin.H{"error": "Invalid authentication token"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by SessionClaims.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	cached, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := cached.(*auth.Claims)
	return claims, ok && claims != nil
}
