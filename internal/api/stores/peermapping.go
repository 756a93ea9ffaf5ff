// peermapping.go implements the administrative endpoints that link and unlink
// a store with its counterpart on the external peer platform. Once linked,
// clients may put the peer "store_..." id in the x-store-id header and the
// scope guard resolves it to the store UUID transparently.
package stores

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/middleware"
	"github.com/storekit/storekit-backend/internal/telemetry"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// SetPeerMappingRequest represents the request to link a store to its peer
// platform counterpart
type SetPeerMappingRequest struct {
	PeerStoreID string `json:"peer_store_id" binding:"required"`
}

// @Summary      Link peer store
// @Description  Link the scoped store to its counterpart on the peer platform. Idempotent when re-linking the same peer id; linking a different peer id to an already linked store, or a peer id owned by another store, answers 409.
// @Tags         Stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string                 true  "Store UUID or peer store id"
// @Param        body        body    SetPeerMappingRequest  true  "Peer store id (store_... format)"
// @Success      200  {object}  map[string]interface{}  "store_id, peer_store_id"
// @Failure      400  {object}  map[string]interface{}  "Peer id not in store_... format"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      404  {object}  map[string]interface{}  "Store not found"
// @Failure      409  {object}  map[string]interface{}  "Mapping conflict"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store/peer-mapping [put]
// SetPeerMappingHandler links the scoped store to a peer store id
// PUT /api/v1/store/peer-mapping
func (h *Handlers) SetPeerMappingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		var req SetPeerMappingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		err := h.tenantRepo.CreateMapping(c.Request.Context(), storeID, req.PeerStoreID)
		if err != nil {
			telemetry.PeerMappingWritesTotal.WithLabelValues("create", writeOutcome(err)).Inc()
			respondError(c, err)
			return
		}
		telemetry.PeerMappingWritesTotal.WithLabelValues("create", "ok").Inc()

		// Evict any stale reverse-mapping entry so the next peer-id request
		// resolves against the fresh link.
		if h.cache != nil {
			h.cache.Invalidate(c.Request.Context(), req.PeerStoreID)
		}

		c.JSON(http.StatusOK, gin.H{
			"store_id":      storeID,
			"peer_store_id": req.PeerStoreID,
		})
	}
}

// @Summary      Unlink peer store
// @Description  Remove the scoped store's peer platform link. Unlinking a store that has no link is a no-op.
// @Tags         Stores
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Success      200  {object}  map[string]interface{}  "message: Peer mapping removed"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store/peer-mapping [delete]
// DeletePeerMappingHandler removes the scoped store's peer link
// DELETE /api/v1/store/peer-mapping
func (h *Handlers) DeletePeerMappingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		// Look up the current peer id before removing the link so the cache
		// entry can be evicted afterwards.
		peerID, err := h.tenantRepo.PeerIDByStoreID(c.Request.Context(), storeID)
		if err != nil {
			respondError(c, err)
			return
		}

		if err := h.tenantRepo.RemoveMapping(c.Request.Context(), storeID); err != nil {
			telemetry.PeerMappingWritesTotal.WithLabelValues("remove", "error").Inc()
			respondError(c, err)
			return
		}
		telemetry.PeerMappingWritesTotal.WithLabelValues("remove", "ok").Inc()

		if h.cache != nil && peerID != "" {
			h.cache.Invalidate(c.Request.Context(), peerID)
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Peer mapping removed",
		})
	}
}

// writeOutcome maps a mapping mutation error to the metric outcome label.
func writeOutcome(err error) string {
	var terr *tenantauth.Error
	if errors.As(err, &terr) && terr.Code == tenantauth.CodeConflict {
		return "conflict"
	}
	return "error"
}
