package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/taskhive/taskhive/internal/auth"
	"github.com/taskhive/taskhive/pkg/errors"
	"github.com/taskhive/taskhive/pkg/response"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "token"
	// CtxUserIDKey is the gin context key holding the authenticated user id.
	CtxUserIDKey = "userID"
)

// Auth validates the session token carried by the request and binds the
// authenticated user id into the request context. Requests without a valid
// token are short-circuited with a 401 envelope.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		userID, err := jwt.Verify(token)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// sessionToken extracts the token from the session cookie, falling back to a
// Bearer authorization header for non-browser clients.
func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	authz := c.GetHeader("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "Bearer ") {
		return strings.TrimSpace(authz[7:])
	}

	return ""
}
