package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"witweb-studio/internal/utils"
)

// OwnerKey is the context key holding the authenticated username
const OwnerKey = "username"

// AuthMiddleware requires a bearer JWT signed with secret and carrying a
// username claim. The username scopes every task the request touches.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := utils.ExtractToken(c)
		if err != nil {
			utils.Abort(c, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := utils.ValidateToken(secret, tokenString)
		if err != nil {
			utils.Abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		username, _ := claims["username"].(string)
		if strings.TrimSpace(username) == "" {
			utils.Abort(c, http.StatusUnauthorized, "Invalid username in token")
			return
		}

		c.Set(OwnerKey, username)
		c.Next()
	}
}

// Owner returns the username set by AuthMiddleware
func Owner(c *gin.Context) string {
	return c.GetString(OwnerKey)
}
