package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"research-repository-api/models"
	"research-repository-api/services"
	"research-repository-api/utils"

	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

// TokenVerifier resolves a bearer token to a user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware validates the bearer token and stores the user in the
// context.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortJSON(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		// Check Bearer prefix
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			abortJSON(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		user, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			if errors.Is(err, services.ErrUnauthenticated) {
				abortJSON(c, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}
			utils.LoggerFromContext(c.Request.Context()).Error("token verification failed", "error", err)
			abortJSON(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		// Set user info in context
		c.Set(currentUserKey, user)
		c.Set("userID", user.ID)
		c.Set("role", user.Role)

		c.Next()
	}
}

// RequireRole checks if user has one of the given roles
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortJSON(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		if err := services.Authorize(user, roles...); err != nil {
			abortJSON(c, http.StatusForbidden, err.Error())
			return
		}

		c.Next()
	}
}

// CurrentUser returns the user stored by AuthMiddleware, or nil.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
