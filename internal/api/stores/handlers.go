// Package stores implements store onboarding, the store-scoped profile
// endpoints, peer platform mapping administration, and member management.
//
// Everything except onboarding runs behind the store scope guard, so handlers
// read the resolved store UUID from the request context and never touch the
// raw x-store-id header.
package stores

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/middleware"
	"github.com/storekit/storekit-backend/internal/tenantauth"
	"github.com/storekit/storekit-backend/internal/validation"
)

// MappingCache invalidates cached peer-id reverse lookups after mapping
// mutations. A nil cache is valid and means no cache is configured.
type MappingCache interface {
	Invalidate(ctx context.Context, peerID string)
}

// Handlers handles store management endpoints
type Handlers struct {
	tenantRepo *repositories.TenantRepository
	memberRepo *repositories.MemberRepository
	cache      MappingCache
}

// NewHandlers creates a new stores Handlers instance. cache may be nil when
// Redis is not configured.
func NewHandlers(db *sql.DB, cache MappingCache) *Handlers {
	return &Handlers{
		tenantRepo: repositories.NewTenantRepository(db),
		memberRepo: repositories.NewMemberRepository(db),
		cache:      cache,
	}
}

func respondError(c *gin.Context, err error) {
	var terr *tenantauth.Error
	if errors.As(err, &terr) {
		c.JSON(terr.Status, gin.H{
			"code":  string(terr.Code),
			"error": terr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":  string(tenantauth.CodeInternal),
		"error": "internal error",
	})
}

// CreateStoreRequest represents the request to create a new store
type CreateStoreRequest struct {
	Name      string `json:"name" binding:"required"`
	Subdomain string `json:"subdomain" binding:"required"`
}

// @Summary      Create store
// @Description  Create a new store with the authenticated user as its owner.
// @Tags         Stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  CreateStoreRequest  true  "Store name and subdomain"
// @Success      201  {object}  map[string]interface{}  "store: models.Tenant, role: owner"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Subdomain already taken"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/stores [post]
// CreateStoreHandler creates a store and makes the caller its owner
// POST /api/v1/stores
func (h *Handlers) CreateStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		var req CreateStoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if err := validation.ValidateSubdomain(req.Subdomain); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": err.Error(),
			})
			return
		}

		tenant := &models.Tenant{
			Name:      req.Name,
			Subdomain: req.Subdomain,
		}
		if err := h.tenantRepo.Create(c.Request.Context(), tenant); err != nil {
			respondError(c, err)
			return
		}

		if err := h.memberRepo.AddMember(c.Request.Context(), tenant.ID, userID, models.RoleOwner); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"store": tenant,
			"role":  models.RoleOwner,
		})
	}
}

// @Summary      Get current store
// @Description  Return the profile of the store the request is scoped to, including its peer platform link.
// @Tags         Stores
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Success      200  {object}  map[string]interface{}  "store: models.Tenant"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Store not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store [get]
// GetStoreHandler returns the scoped store's profile
// GET /api/v1/store
func (h *Handlers) GetStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		store, err := h.tenantRepo.GetByID(c.Request.Context(), storeID)
		if err != nil {
			respondError(c, err)
			return
		}
		if store == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"store": store})
	}
}

// UpdateStoreRequest represents the request to update a store profile
type UpdateStoreRequest struct {
	Name *string `json:"name"`
}

// @Summary      Update current store
// @Description  Update the scoped store's profile. Requires the owner or admin role.
// @Tags         Stores
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string              true  "Store UUID or peer store id"
// @Param        body        body    UpdateStoreRequest  true  "Fields to update"
// @Success      200  {object}  map[string]interface{}  "store: models.Tenant"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      404  {object}  map[string]interface{}  "Store not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store [put]
// UpdateStoreHandler updates the scoped store's profile
// PUT /api/v1/store
func (h *Handlers) UpdateStoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		var req UpdateStoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		store, err := h.tenantRepo.GetByID(c.Request.Context(), storeID)
		if err != nil {
			respondError(c, err)
			return
		}
		if store == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		if req.Name != nil {
			store.Name = *req.Name
		}

		if err := h.tenantRepo.Update(c.Request.Context(), store); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"store": store})
	}
}
