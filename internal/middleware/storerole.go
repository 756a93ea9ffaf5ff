// storerole.go gates administrative operations inside an authorized store.
// It runs after StoreScopeMiddleware: scope resolution decides whether the
// user may enter the store at all, this decides what they may do inside it.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// RequireStoreRole allows the request through only when the session user's
// membership in the resolved store carries one of the given roles. Membership
// existence was already proven by the scope guard, so a missing row here is an
// internal inconsistency, not a client error.
func RequireStoreRole(memberRepo *repositories.MemberRepository, roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		storeID := c.GetString(StoreIDKey)
		userID := c.GetString("user_id")

		member, err := memberRepo.GetMember(c.Request.Context(), storeID, userID)
		if err != nil {
			abortWithError(c, tenantauth.ErrInternal(err))
			return
		}
		if member == nil || !member.IsActive || !allowed[member.Role] {
			abortWithError(c, tenantauth.ErrNoStoreAccess())
			return
		}

		c.Set("store_role", member.Role)
		c.Next()
	}
}
