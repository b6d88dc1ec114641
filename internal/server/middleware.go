package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/storefront-dev/storefront/internal/auth"
)

// Clients authenticate with "Authorization: JWT <access>"
const jwtPrefix = "JWT "

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

func setUserID(c *gin.Context, userID string) {
	c.Set("user_id", userID)
}

// GetUserID returns the authenticated user's id set by the JWT middleware
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	return id, ok
}

func extractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, jwtPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, jwtPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// jwtAuthMiddleware validates access tokens on protected routes
func jwtAuthMiddleware(issuer *auth.Issuer, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c.GetHeader("Authorization"))
		if err != nil {
			log.Warn().Err(err).Msg("Rejected unauthenticated request")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			c.Abort()
			return
		}

		claims, err := issuer.ValidateType(token, auth.TokenTypeAccess)
		if err != nil {
			log.Warn().Err(err).Msg("Rejected invalid access token")
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired"})
			c.Abort()
			return
		}

		setUserID(c, claims.UserID)
		c.Next()
	}
}
