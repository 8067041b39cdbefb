package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coeurdepaille/matching-service/internal/service/auth"
)

const userIDKey = "user_id"

// AuthMiddleware validates the Bearer token and stores the caller's user
// id in the request context. Requests without a valid token are rejected
// with 401; auth is never silently defaulted.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			Fail(c, http.StatusUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			Fail(c, http.StatusUnauthorized, "invalid authorization header")
			c.Abort()
			return
		}

		userID, err := tokens.Validate(parts[1])
		if err != nil {
			Fail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID pulls the authenticated caller's id out of the request context.
func UserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// Recovery turns panics into a 500 envelope and logs them through the
// service logger instead of gin's default writer.
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", "path", c.FullPath(), "err", r)
				if !c.Writer.Written() {
					Fail(c, http.StatusInternalServerError, "internal server error")
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
