// Package orders implements the store-scoped order endpoints: creation,
// listing with an optional status filter, and status transitions.
package orders

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/config"
	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/middleware"
	"github.com/storekit/storekit-backend/internal/tenantauth"
	"github.com/storekit/storekit-backend/internal/validation"
)

// Handlers handles order endpoints
type Handlers struct {
	cfg       *config.Config
	orderRepo *repositories.OrderRepository
}

// NewHandlers creates a new orders Handlers instance
func NewHandlers(cfg *config.Config, db *sql.DB) *Handlers {
	return &Handlers{
		cfg:       cfg,
		orderRepo: repositories.NewOrderRepository(db),
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

// @Summary      List orders
// @Description  List the scoped store's orders, newest first, optionally filtered by status.
// @Tags         Orders
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true   "Store UUID or peer store id"
// @Param        status      query   string  false  "Filter by order status"
// @Param        page        query   int     false  "Page number (default 1)"
// @Param        per_page    query   int     false  "Items per page"
// @Success      200  {object}  map[string]interface{}  "orders: []models.Order, pagination: {page, per_page, total}"
// @Failure      400  {object}  map[string]interface{}  "Unknown status filter"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/orders [get]
// ListOrdersHandler lists the scoped store's orders
// GET /api/v1/orders?status=paid&page=1&per_page=25
func (h *Handlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		status := c.Query("status")
		if status != "" && !models.ValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Unknown order status: " + status,
			})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(h.cfg.Pagination.DefaultLimit)))
		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > h.cfg.Pagination.MaxLimit {
			perPage = h.cfg.Pagination.DefaultLimit
		}
		offset := (page - 1) * perPage

		orders, err := h.orderRepo.List(c.Request.Context(), storeID, status, perPage, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		if orders == nil {
			orders = []*models.Order{}
		}

		total, err := h.orderRepo.Count(c.Request.Context(), storeID, status)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": orders,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get order
// @Description  Retrieve one order belonging to the scoped store.
// @Tags         Orders
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Param        id          path    string  true  "Order ID"
// @Success      200  {object}  map[string]interface{}  "order: models.Order"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Order not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/orders/{id} [get]
// GetOrderHandler retrieves a single order
// GET /api/v1/orders/:id
func (h *Handlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		orderID := c.Param("id")

		order, err := h.orderRepo.GetByID(c.Request.Context(), storeID, orderID)
		if err != nil {
			respondError(c, err)
			return
		}
		if order == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}

// CreateOrderRequest represents the request to create an order
type CreateOrderRequest struct {
	CustomerEmail string `json:"customer_email" binding:"required,email"`
	TotalCents    int64  `json:"total_cents" binding:"required,min=0"`
	Currency      string `json:"currency" binding:"required"`
}

// @Summary      Create order
// @Description  Record a new order against the scoped store. New orders start in the pending status.
// @Tags         Orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string              true  "Store UUID or peer store id"
// @Param        body        body    CreateOrderRequest  true  "Order fields"
// @Success      201  {object}  map[string]interface{}  "order: models.Order"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/orders [post]
// CreateOrderHandler creates an order in the scoped store
// POST /api/v1/orders
func (h *Handlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
		if err := validation.ValidateCurrency(req.Currency); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": err.Error(),
			})
			return
		}

		order := &models.Order{
			StoreID:       storeID,
			CustomerEmail: req.CustomerEmail,
			Status:        models.OrderStatusPending,
			TotalCents:    req.TotalCents,
			Currency:      req.Currency,
		}
		if err := h.orderRepo.Create(c.Request.Context(), order); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"order": order})
	}
}

// UpdateOrderStatusRequest represents the request to transition an order's
// status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// @Summary      Update order status
// @Description  Transition an order belonging to the scoped store to a new status.
// @Tags         Orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string                    true  "Store UUID or peer store id"
// @Param        id          path    string                    true  "Order ID"
// @Param        body        body    UpdateOrderStatusRequest  true  "New status"
// @Success      200  {object}  map[string]interface{}  "order: models.Order"
// @Failure      400  {object}  map[string]interface{}  "Unknown status"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Order not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/orders/{id}/status [put]
// UpdateOrderStatusHandler transitions an order's status
// PUT /api/v1/orders/:id/status
func (h *Handlers) UpdateOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		orderID := c.Param("id")

		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		updated, err := h.orderRepo.UpdateStatus(c.Request.Context(), storeID, orderID, req.Status)
		if err != nil {
			respondError(c, err)
			return
		}
		if !updated {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		order, err := h.orderRepo.GetByID(c.Request.Context(), storeID, orderID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"order": order})
	}
}
