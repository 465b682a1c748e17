package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// APITokenRequired middleware checks for a bearer token matching apiToken.
// An empty apiToken leaves the routes open.
func APITokenRequired(apiToken string) gin.HandlerFunc {
	expected := []byte(apiToken)

	return func(c *gin.Context) {
		if apiToken == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing API token"})
			return
		}

		c.Next()
	}
}
