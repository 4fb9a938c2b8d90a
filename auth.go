package main

import (
	"errors"
	"net/http"
	"strings"

	"sendmoney/pkg/session"
	"sendmoney/pkg/transfer"

	"github.com/gin-gonic/gin"
)

const sessionCookie = "session"

// rawSessionToken extracts and verifies the session JWT from the Authorization
// header or the session cookie, returning the raw session token inside.
func rawSessionToken(c *gin.Context) (string, bool) {
	tokenString := ""
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = authHeader[7:]
	} else if ck, err := c.Cookie(sessionCookie); err == nil {
		tokenString = ck
	}
	if tokenString == "" {
		return "", false
	}
	raw, err := session.ParseToken(sessionSecret, tokenString)
	if err != nil {
		return "", false
	}
	return raw, true
}

// sessionAuthMiddleware rejects requests without a live session and stores
// the raw session token under "sid".
func sessionAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := rawSessionToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid session"})
			c.Abort()
			return
		}
		c.Set("sid", raw)
		c.Next()
	}
}

// sessionFromContext returns a provider bound to this request's session. It
// reads the store whenever it is asked for the user.
func sessionFromContext(c *gin.Context) session.Provider {
	return session.Provider{Store: sessions, Raw: c.GetString("sid")}
}

// currentUser resolves the session user for request-level checks.
func currentUser(c *gin.Context) (transfer.UserID, bool) {
	return sessionFromContext(c).CurrentUserID(c.Request.Context())
}

// logoutHandler revokes the current session (if any) and clears the cookie.
func logoutHandler(c *gin.Context) {
	if raw, ok := rawSessionToken(c); ok {
		if err := sessions.Revoke(c.Request.Context(), raw); err != nil && !errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke session"})
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
