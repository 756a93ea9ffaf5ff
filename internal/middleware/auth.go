// Package middleware provides Gin HTTP middleware for authentication, store
// scope resolution, rate limiting, and security headers.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → StoreScope → StoreRole → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attacks before any DB work.
// Auth populates the user identity; StoreScope resolves and authorizes the
// x-store-id header against that identity before any handler logic runs, and
// StoreRole gates administrative operations within the authorized store.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/auth"
	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// abortWithError writes the standard {"code", "error"} body for a resolution
// or authorization failure and stops the chain.
func abortWithError(c *gin.Context, err *tenantauth.Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"code":  string(err.Code),
		"error": err.Message,
	})
}

// AuthMiddleware validates the Bearer JWT and loads the user into the context.
// Requests without valid credentials are rejected with UNAUTHENTICATED.
func AuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, tenantauth.ErrUnauthenticated())
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			abortWithError(c, tenantauth.ErrUnauthenticated())
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortWithError(c, tenantauth.ErrInternal(err))
			return
		}
		if user == nil {
			// Token is valid but the account is gone.
			abortWithError(c, tenantauth.ErrUnauthenticated())
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)

		c.Next()
	}
}

// OptionalAuthMiddleware populates the user identity when a valid Bearer JWT
// is present and continues silently otherwise. Store-scoped routes use this
// variant so the scope guard owns the rejection order: a malformed x-store-id
// must answer 400 even when the caller is also unauthenticated.
func OptionalAuthMiddleware(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.Next()
			return
		}

		user, err := userRepo.GetUserByID(c.Request.Context(), claims.UserID)
		if err == nil && user != nil {
			c.Set("user", user)
			c.Set("user_id", user.ID)
		}

		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}
