package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bidcraft/backend/internal/users"
	"github.com/gin-gonic/gin"
)

// AccountSource resolves token subjects to stored accounts.
type AccountSource interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// RequireAuth verifies the bearer token, re-reads the account so that role
// and status reflect the store rather than the token, rejects banned
// accounts, and attaches the principal to the request context.
func RequireAuth(tokens *TokenManager, accounts AccountSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token"})
			c.Abort()
			return
		}

		claims, err := tokens.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
			c.Abort()
			return
		}

		u, err := accounts.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unknown account"})
			c.Abort()
			return
		}
		if u.Status == users.StatusBanned {
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "account banned"})
			c.Abort()
			return
		}

		setPrincipal(c, Principal{ID: u.ID, Email: u.Email, Role: u.Role, Status: u.Status})
		c.Next()
	}
}

// RequireRole guards a route group behind a single role. Must run after
// RequireAuth.
func RequireRole(role users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok || p.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
