package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys set by Auth.
const (
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
	CtxUserEmailKey = "userEmail"
)

// accessToken reads the session cookie, falling back to an Authorization: Bearer header.
func accessToken(c *gin.Context, cookieName string) string {
	if tok, err := c.Cookie(cookieName); err == nil && tok != "" {
		return tok
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
