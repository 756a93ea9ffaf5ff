// Package products implements the store-scoped product catalog endpoints.
// Handlers trust the store UUID resolved by the scope guard; every repository
// call is keyed by it, so a product belonging to another store is
// indistinguishable from one that does not exist.
package products

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

// Handlers handles product catalog endpoints
type Handlers struct {
	cfg         *config.Config
	productRepo *repositories.ProductRepository
}

// NewHandlers creates a new products Handlers instance
func NewHandlers(cfg *config.Config, db *sql.DB) *Handlers {
	return &Handlers{
		cfg:         cfg,
		productRepo: repositories.NewProductRepository(db),
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

// pagination parses page/per_page query parameters within configured bounds.
func (h *Handlers) pagination(c *gin.Context) (page, perPage, offset int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(h.cfg.Pagination.DefaultLimit)))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > h.cfg.Pagination.MaxLimit {
		perPage = h.cfg.Pagination.DefaultLimit
	}
	return page, perPage, (page - 1) * perPage
}

// @Summary      List products
// @Description  List the scoped store's products with pagination. Soft-deleted products are excluded.
// @Tags         Products
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true   "Store UUID or peer store id"
// @Param        page        query   int     false  "Page number (default 1)"
// @Param        per_page    query   int     false  "Items per page"
// @Success      200  {object}  map[string]interface{}  "products: []models.Product, pagination: {page, per_page, total}"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/products [get]
// ListProductsHandler lists the scoped store's products
// GET /api/v1/products?page=1&per_page=25
func (h *Handlers) ListProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		page, perPage, offset := h.pagination(c)

		products, err := h.productRepo.List(c.Request.Context(), storeID, perPage, offset)
		if err != nil {
			respondError(c, err)
			return
		}
		if products == nil {
			products = []*models.Product{}
		}

		total, err := h.productRepo.Count(c.Request.Context(), storeID)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products": products,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get product
// @Description  Retrieve one product belonging to the scoped store.
// @Tags         Products
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Param        id          path    string  true  "Product ID"
// @Success      200  {object}  map[string]interface{}  "product: models.Product"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Product not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/products/{id} [get]
// GetProductHandler retrieves a single product
// GET /api/v1/products/:id
func (h *Handlers) GetProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		productID := c.Param("id")

		product, err := h.productRepo.GetByID(c.Request.Context(), storeID, productID)
		if err != nil {
			respondError(c, err)
			return
		}
		if product == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

// CreateProductRequest represents the request to create a product
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents" binding:"required,min=0"`
	Currency    string `json:"currency" binding:"required"`
	Stock       int    `json:"stock" binding:"min=0"`
}

// @Summary      Create product
// @Description  Add a product to the scoped store's catalog.
// @Tags         Products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string                true  "Store UUID or peer store id"
// @Param        body        body    CreateProductRequest  true  "Product fields"
// @Success      201  {object}  map[string]interface{}  "product: models.Product"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/products [post]
// CreateProductHandler creates a product in the scoped store
// POST /api/v1/products
func (h *Handlers) CreateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)

		var req CreateProductRequest
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

		product := &models.Product{
			StoreID:     storeID,
			Name:        req.Name,
			Description: req.Description,
			PriceCents:  req.PriceCents,
			Currency:    req.Currency,
			Stock:       req.Stock,
		}
		if err := h.productRepo.Create(c.Request.Context(), product); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"product": product})
	}
}

// UpdateProductRequest represents the request to update a product
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PriceCents  *int64  `json:"price_cents"`
	Currency    *string `json:"currency"`
	Stock       *int    `json:"stock"`
}

// @Summary      Update product
// @Description  Update fields of a product belonging to the scoped store.
// @Tags         Products
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        x-store-id  header  string                true  "Store UUID or peer store id"
// @Param        id          path    string                true  "Product ID"
// @Param        body        body    UpdateProductRequest  true  "Fields to update"
// @Success      200  {object}  map[string]interface{}  "product: models.Product"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Product not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/products/{id} [put]
// UpdateProductHandler updates a product in the scoped store
// PUT /api/v1/products/:id
func (h *Handlers) UpdateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		productID := c.Param("id")

		var req UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		product, err := h.productRepo.GetByID(c.Request.Context(), storeID, productID)
		if err != nil {
			respondError(c, err)
			return
		}
		if product == nil {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		if req.Name != nil {
			product.Name = *req.Name
		}
		if req.Description != nil {
			product.Description = *req.Description
		}
		if req.PriceCents != nil {
			if *req.PriceCents < 0 {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":  string(tenantauth.CodeValidation),
					"error": "price_cents must not be negative",
				})
				return
			}
			product.PriceCents = *req.PriceCents
		}
		if req.Currency != nil {
			if err := validation.ValidateCurrency(*req.Currency); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":  string(tenantauth.CodeValidation),
					"error": err.Error(),
				})
				return
			}
			product.Currency = *req.Currency
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				c.JSON(http.StatusBadRequest, gin.H{
					"code":  string(tenantauth.CodeValidation),
					"error": "stock must not be negative",
				})
				return
			}
			product.Stock = *req.Stock
		}

		updated, err := h.productRepo.Update(c.Request.Context(), product)
		if err != nil {
			respondError(c, err)
			return
		}
		if !updated {
			// Deleted between the read and the write.
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"product": product})
	}
}

// @Summary      Delete product
// @Description  Soft-delete a product from the scoped store's catalog. Order history keeps resolving the product.
// @Tags         Products
// @Security     Bearer
// @Produce      json
// @Param        x-store-id  header  string  true  "Store UUID or peer store id"
// @Param        id          path    string  true  "Product ID"
// @Success      200  {object}  map[string]interface{}  "message: Product deleted"
// @Failure      403  {object}  map[string]interface{}  "No store access"
// @Failure      404  {object}  map[string]interface{}  "Product not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/products/{id} [delete]
// DeleteProductHandler soft-deletes a product in the scoped store
// DELETE /api/v1/products/:id
func (h *Handlers) DeleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID := c.GetString(middleware.StoreIDKey)
		productID := c.Param("id")

		deleted, err := h.productRepo.Delete(c.Request.Context(), storeID, productID)
		if err != nil {
			respondError(c, err)
			return
		}
		if !deleted {
			respondError(c, tenantauth.ErrStoreNotFound())
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
	}
}
