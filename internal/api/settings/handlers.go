// Package settings implements the store-scoped key/value configuration
// endpoints. Values are opaque JSON owned by the caller.
package settings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/middleware"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// maxKeyLength bounds setting keys; longer keys are almost always a client
// bug (e.g. value and key swapped).
const maxKeyLength = 128

// Handlers handles store settings endpoints
type Handlers struct {
	settingsRepo *repositories.SettingsRepository
}

// NewHandlers creates a new settings Handlers instance
func NewHandlers(db *sql.DB) *Handlers {
	return &Handlers{
		settingsRepo: repositories.NewSettingsRepository(db),
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

// @Summary      List settings
// @Description  List all configuration entries for the scoped store, ordered by key.
// @Tags         Settings
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Success      200  {object}  map[string]interface{}  "settings: []models.StoreSetting"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/settings [get]
// ListSettingsHandler lists the scoped store's settings
// GET /api/v1/settings
func (h *Handlers) ListSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		settings, err := h.settingsRepo.List(c.Request.Context(), storeID)
		if err != nil {
			respondError(c, err)
			return
		}
		if settings == nil {
			settings = []*models.StoreSetting{}
		}

		c.JSON(http.StatusOK, gin.H{"settings": settings})
	}
}

// @Summary      Get setting
// @Description  Retrieve one configuration entry for the scoped store.
// @Tags         Settings
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Param        key         path    string  true  "Setting key"
// @Success      200  {object}  map[string]interface{}  "setting: models.StoreSetting"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Setting not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/settings/{key} [get]
// GetSettingHandler retrieves a single setting
// GET /api/v1/settings/:key
func (h *Handlers) GetSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		key := c.Param("key")

		setting, err := h.settingsRepo.Get(c.Request.Context(), storeID, key)
		if err != nil {
			respondError(c, err)
			return
		}
		if setting == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"setting": setting})
	}
}

// SetSettingRequest represents the request to set a setting value
type SetSettingRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}

// @Summary      Set setting
// @Description  Create or overwrite one configuration entry for the scoped store. Requires the owner or admin role.
// @Tags         Settings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string             true  "Store UUID or peer store id"
// @Param        key         path    string             true  "Setting key"
// @Param        body        body    SetSettingRequest  true  "Arbitrary JSON value"
// @Success      200  {object}  map[string]interface{}  "setting: models.StoreSetting"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body or key too long"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/settings/{key} [put]
// SetSettingHandler creates or overwrites a setting
// PUT /api/v1/settings/:key
func (h *Handlers) SetSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		key := c.Param("key")

		if len(key) > maxKeyLength {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Setting key too long",
			})
			return
		}

		var req SetSettingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if err := h.settingsRepo.Set(c.Request.Context(), storeID, key, req.Value); err != nil {
			respondError(c, err)
			return
		}

		setting, err := h.settingsRepo.Get(c.Request.Context(), storeID, key)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"setting": setting})
	}
}

// @Summary      Delete setting
// @Description  Remove one configuration entry from the scoped store. Requires the owner or admin role.
// @Tags         Settings
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Param        key         path    string  true  "Setting key"
// @Success      200  {object}  map[string]interface{}  "message: Setting deleted"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      404  {object}  map[string]interface{}  "Setting not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/settings/{key} [delete]
// DeleteSettingHandler removes a setting
// DELETE /api/v1/settings/:key
func (h *Handlers) DeleteSettingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		key := c.Param("key")

		deleted, err := h.settingsRepo.Delete(c.Request.Context(), storeID, key)
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Setting deleted"})
	}
}
