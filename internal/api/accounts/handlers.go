// Package accounts implements registration, login, and account self-service
// endpoints. These routes are never store-scoped: they identify the user, and
// the "my stores" listing is how a client discovers which store UUIDs it may
// put in the x-store-id header afterwards.
package accounts

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storekit/storekit-backend/internal/auth"
	"github.com/storekit/storekit-backend/internal/config"
	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// Handlers handles account endpoints
type Handlers struct {
	cfg        *config.Config
	userRepo   *repositories.UserRepository
	memberRepo *repositories.MemberRepository
}

// NewHandlers creates a new accounts Handlers instance
func NewHandlers(cfg *config.Config, db *sql.DB) *Handlers {
	return &Handlers{
		cfg:        cfg,
		userRepo:   repositories.NewUserRepository(db),
		memberRepo: repositories.NewMemberRepository(db),
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

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
}

// @Summary      Register account
// @Description  Create a new user account and issue a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  RegisterRequest  true  "Email, password, and display name"
// @Success      201  {object}  map[string]interface{}  "token: JWT, user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      409  {object}  map[string]interface{}  "Email already registered"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/register [post]
// RegisterHandler creates a new user account
// POST /api/v1/auth/register
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		hash, err := auth.HashPassword(req.Password, h.cfg.Auth.BcryptCost)
		if err != nil {
			respondError(c, err)
			return
		}

		user := &models.User{
			Email:        req.Email,
			PasswordHash: hash,
			DisplayName:  req.DisplayName,
		}
		if err := h.userRepo.CreateUser(c.Request.Context(), user); err != nil {
			respondError(c, err)
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.TokenTTL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// LoginRequest represents the request to authenticate
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Log in
// @Description  Authenticate with email and password, returning a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Email and password"
// @Success      200  {object}  map[string]interface{}  "token: JWT, user: models.User"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      401  {object}  map[string]interface{}  "Invalid email or password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates a user
// POST /api/v1/auth/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":  string(tenantauth.CodeValidation),
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetUserByEmail(c.Request.Context(), req.Email)
		if err != nil {
			respondError(c, err)
			return
		}

		// Identical rejection for unknown email and wrong password so the
		// endpoint does not leak which emails have accounts.
		if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":  string(tenantauth.CodeUnauthenticated),
				"error": "Invalid email or password",
			})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.TokenTTL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  user,
		})
	}
}

// @Summary      Current user
// @Description  Return the authenticated user's account details.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user: models.User"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me [get]
// MeHandler returns the authenticated user
// GET /api/v1/me
func (h *Handlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":  string(tenantauth.CodeUnauthenticated),
				"error": "Account no longer exists",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// @Summary      List my stores
// @Description  Return the stores the authenticated user is an active member of, with role per store.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "stores: []models.UserStore"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/me/stores [get]
// MyStoresHandler lists the stores the caller may scope requests to
// GET /api/v1/me/stores
func (h *Handlers) MyStoresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")

		stores, err := h.memberRepo.ListUserStores(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		if stores == nil {
			stores = []*models.UserStore{}
		}

		c.JSON(http.StatusOK, gin.H{"stores": stores})
	}
}
