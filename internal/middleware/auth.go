package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ladybug-tracker/backend/internal/utils"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

// AuthRequired checks for a valid JWT token and puts the authenticated user
// in the request context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "invalid or missing token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// OptionalAuth resolves the user when a valid token is present but lets the
// request through either way. Used on endpoints whose response depends on who
// is asking, like the project list.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c); ok {
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextEmail, claims.Email)
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context) (*utils.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}
	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

// GetUserID returns the authenticated user's ID, or "" for anonymous requests.
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(string)
	}
	return ""
}

// GetEmail returns the authenticated user's email, or "".
func GetEmail(c *gin.Context) string {
	if email, exists := c.Get(ContextEmail); exists {
		return email.(string)
	}
	return ""
}
