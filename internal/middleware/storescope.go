// storescope.go provides the store scope guard: every store-scoped route runs
// through it before its handler, and no handler observes a request whose
// x-store-id was not resolved to a store the caller may access.
package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/scopeid"
	"github.com/storekit/storekit-backend/internal/telemetry"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// ScopeIDHeader is the HTTP header carrying the store identifier, in either
// store-UUID or peer "store_..." format.
const ScopeIDHeader = "x-store-id"

// Context keys set by StoreScopeMiddleware on success.
const (
	StoreIDKey     = "store_id"
	PeerStoreIDKey = "peer_store_id"
)

// StoreScopeMiddleware resolves the x-store-id header through the translator
// and stores the authorized scope in the gin context. On any failure the
// request is aborted with the taxonomy code and its HTTP status; handlers
// behind this middleware can trust that store_id is a canonical UUID the
// session user is an active member of.
func StoreScopeMiddleware(translator *tenantauth.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawScopeID := c.GetHeader(ScopeIDHeader)
		userID := c.GetString("user_id")
		idKind := kindLabel(rawScopeID)

		start := time.Now()
		scope, err := translator.Resolve(c.Request.Context(), rawScopeID, userID)
		telemetry.ScopeResolutionDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			var authErr *tenantauth.Error
			if !errors.As(err, &authErr) {
				authErr = tenantauth.ErrInternal(err)
			}
			if authErr.Code == tenantauth.CodeInternal {
				slog.Error("store scope resolution failed",
					"error", err,
					"id_kind", idKind,
					"request_id", c.GetString(RequestIDKey),
				)
			}
			telemetry.ScopeResolutionsTotal.WithLabelValues(string(authErr.Code), idKind).Inc()
			abortWithError(c, authErr)
			return
		}

		telemetry.ScopeResolutionsTotal.WithLabelValues("authorized", idKind).Inc()

		c.Set(StoreIDKey, scope.StoreID)
		c.Set(PeerStoreIDKey, scope.PeerStoreID)

		c.Next()
	}
}

// kindLabel maps a raw header value to the bounded id_kind metric label.
func kindLabel(rawScopeID string) string {
	switch scopeid.Classify(rawScopeID) {
	case scopeid.KindUUID:
		return "uuid"
	case scopeid.KindPeerID:
		return "peer_id"
	default:
		return "unknown"
	}
}
