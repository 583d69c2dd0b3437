package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/response"
)

func unauthorized(c *gin.Context, message string, err interface{}) {
	response.Error[any](c, http.StatusUnauthorized, message, err)
	c.Abort()
}

// Auth validates the access token and, when Redis is configured, that the
// session it was issued for is still the live one.
// It sets userID, sessionID and (with a session) userEmail in the Gin context.
func Auth(rdb *redis.Client, jwt *helpers.JWTManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c, cookieName)
		if token == "" {
			unauthorized(c, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			unauthorized(c, "invalid access token", err.Error())
			return
		}

		if rdb != nil {
			sess, err := helpers.LoadSession(c.Request.Context(), rdb, claims.UserID)
			if err != nil {
				unauthorized(c, "session not found", nil)
				return
			}
			if sess.SID != claims.SessionID {
				unauthorized(c, "session replaced", nil)
				return
			}
			c.Set(CtxUserEmailKey, sess.Email)
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Next()
	}
}
