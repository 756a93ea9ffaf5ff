// members.go implements member management for the scoped store. All routes
// here run behind RequireStoreRole(owner, admin).
package stores

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/middleware"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

func validRole(role string) bool {
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleMember, models.RoleViewer:
		return true
	}
	return false
}

// @Summary      List store members
// @Description  List the scoped store's members with user details, including deactivated members.
// @Tags         Members
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Success      200  {object}  map[string]interface{}  "members: []models.StoreMemberWithUser"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store/members [get]
// ListMembersHandler lists the scoped store's members
// GET /api/v1/store/members
func (h *Handlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		members, err := h.memberRepo.ListMembersWithUsers(c.Request.Context(), storeID)
		if err != nil {
			respondError(c, err)
			return
		}
		if members == nil {
			members = []*models.StoreMemberWithUser{}
		}

		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

// AddMemberRequest represents the request to add a member to the store
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

// @Summary      Add store member
// @Description  Add a user as a member of the scoped store with the given role.
// @Tags         Members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string            true  "Store UUID or peer store id"
// @Param        body        body    AddMemberRequest  true  "User id and role"
// @Success      201  {object}  map[string]interface{}  "member: models.StoreMember"
// @Failure      400  {object}  map[string]interface{}  "Invalid request or unknown role"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      409  {object}  map[string]interface{}  "User is already a member"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store/members [post]
// AddMemberHandler adds a member to the scoped store
// POST /api/v1/store/members
func (h *Handlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if !validRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Unknown role: " + req.Role,
			})
			return
		}

		if err := h.memberRepo.AddMember(c.Request.Context(), storeID, req.UserID, req.Role); err != nil {
			respondError(c, err)
			return
		}

		member, err := h.memberRepo.GetMember(c.Request.Context(), storeID, req.UserID)
		if err != nil || member == nil {
			// The insert succeeded; answer with what we know.
			c.JSON(http.StatusCreated, gin.H{
				"member": gin.H{
					"user_id":  req.UserID,
					"store_id": storeID,
					"role":     req.Role,
				},
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"member": member})
	}
}

// UpdateMemberRequest represents the request to change a member's role or
// active state
type UpdateMemberRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// @Summary      Update store member
// @Description  Change a member's role or activate/deactivate the membership.
// @Tags         Members
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string               true  "Store UUID or peer store id"
// @Param        user_id     path    string               true  "User ID"
// @Param        body        body    UpdateMemberRequest  true  "role and/or is_active"
// @Success      200  {object}  map[string]interface{}  "member: models.StoreMember"
// @Failure      400  {object}  map[string]interface{}  "Invalid request or unknown role"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      404  {object}  map[string]interface{}  "Member not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store/members/{user_id} [put]
// UpdateMemberHandler updates a member's role or active state
// PUT /api/v1/store/members/:user_id
func (h *Handlers) UpdateMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		userID := c.Param("user_id")

		var req UpdateMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if req.Role != nil {
			if !validRole(*req.Role) {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":  string(tenantauth.CodeValidation),
					"error": "Unknown role: " + *req.Role,
				})
				return
			}
			if err := h.memberRepo.UpdateMemberRole(c.Request.Context(), storeID, userID, *req.Role); err != nil {
				respondError(c, err)
				return
			}
		}

		if req.IsActive != nil {
			if err := h.memberRepo.SetMemberActive(c.Request.Context(), storeID, userID, *req.IsActive); err != nil {
				respondError(c, err)
				return
			}
		}

		member, err := h.memberRepo.GetMember(c.Request.Context(), storeID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if member == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"member": member})
	}
}

// @Summary      Remove store member
// @Description  Revoke a user's access to the scoped store. The membership is deactivated, not deleted; the role assignment survives for a later reactivation.
// @Tags         Members
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Param        user_id     path    string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message: Member deactivated"
// @Failure      403  {object}  map[string]interface{}  "Insufficient role"
// @Failure      404  {object}  map[string]interface{}  "Member not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/store/members/{user_id} [delete]
// RemoveMemberHandler revokes a member's access to the scoped store.
// Membership rows are never hard-deleted.
// DELETE /api/v1/store/members/:user_id
func (h *Handlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		userID := c.Param("user_id")

		if err := h.memberRepo.SetMemberActive(c.Request.Context(), storeID, userID, false); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Member deactivated"})
	}
}
