package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UIDKey is the gin context key holding the caller's user id.
const UIDKey = "uid"

const maxUserIDLength = 128

// TokenVerifier is the part of the Firebase Auth client used here.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserScopeMiddleware resolves the user every entry is scoped to. When a
// verifier is configured only a verified Firebase ID token is accepted, as a
// Bearer header or, for websocket upgrades, the token query parameter.
// Without a verifier the device-generated X-User-ID header is used.
func UserScopeMiddleware(verifier TokenVerifier, logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier != nil {
			verifiedScope(c, verifier, logger)
			return
		}

		uid := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if uid == "" {
			// Browsers cannot set headers on websocket upgrades.
			uid = strings.TrimSpace(c.Query("uid"))
		}
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header is required"})
			return
		}
		if len(uid) > maxUserIDLength || strings.ContainsAny(uid, ":*? ") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		c.Set(UIDKey, uid)
		c.Next()
	}
}

func verifiedScope(c *gin.Context, verifier TokenVerifier, logger *zap.SugaredLogger) {
	const bearerPrefix = "Bearer "

	var idToken string
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with 'Bearer '"})
			return
		}
		idToken = strings.TrimPrefix(authHeader, bearerPrefix)
	} else if websocketUpgrade(c) {
		idToken = c.Query("token")
	}
	if strings.TrimSpace(idToken) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
		return
	}

	token, err := verifier.VerifyIDToken(c.Request.Context(), idToken)
	if err != nil {
		if logger != nil {
			logger.Warnw("id token rejected", "request_id", c.GetString("request_id"), "error", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	c.Set(UIDKey, token.UID)
	c.Next()
}

func websocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

// PasswordGateMiddleware requires X-App-Password to match hash. An empty hash
// disables the gate.
func PasswordGateMiddleware(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.Next()
			return
		}
		password := c.GetHeader("X-App-Password")
		if password == "" {
			password = c.Query("password")
		}
		if password == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Incorrect password"})
			return
		}
		c.Next()
	}
}
