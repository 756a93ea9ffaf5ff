// Package api wires together all HTTP routes for the Storekit backend.
//
// Route grouping philosophy:
//   - Account routes (/api/v1/auth/, /api/v1/me) identify the user and are
//     never store-scoped; /api/v1/me/stores is how a client discovers which
//     store UUIDs it may scope requests to.
//   - Store-scoped routes run behind the scope guard chain. They use optional
//     authentication so that the guard owns the full rejection order: a
//     malformed x-store-id answers 400 even when no credentials were sent,
//     and authentication is only checked once the header survives format
//     validation.
//   - Administrative store routes (peer mapping, members, settings writes)
//     additionally require the owner or admin role in the scoped store.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/storekit/storekit-backend/internal/api/accounts"
	"github.com/storekit/storekit-backend/internal/api/orders"
	"github.com/storekit/storekit-backend/internal/api/products"
	"github.com/storekit/storekit-backend/internal/api/settings"
	"github.com/storekit/storekit-backend/internal/api/stores"
	"github.com/storekit/storekit-backend/internal/cache"
	"github.com/storekit/storekit-backend/internal/config"
	"github.com/storekit/storekit-backend/internal/db/models"
	"github.com/storekit/storekit-backend/internal/db/repositories"
	"github.com/storekit/storekit-backend/internal/middleware"
	"github.com/storekit/storekit-backend/internal/tenantauth"
)

// stopper is anything holding a background goroutine that must be released on
// shutdown. Both rate limiter implementations satisfy it.
type stopper interface {
	Stop()
}

// BackgroundServices holds references to background resources that must be
// stopped during graceful shutdown. The caller (cmd/server) is responsible
// for calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	stoppers []stopper
}

// Shutdown stops all background goroutines. It should be called after the
// HTTP server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, s := range bg.stoppers {
		s.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router. redisClient may be nil;
// without it the reverse-mapping cache is disabled and rate limiting is
// enforced per-instance only.
func NewRouter(cfg *config.Config, db *sql.DB, redisClient *redis.Client) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	tenantRepo := repositories.NewTenantRepository(db)
	memberRepo := repositories.NewMemberRepository(db)

	// The scope translator resolves x-store-id headers into authorized store
	// UUIDs. With Redis available, peer-id reverse lookups are served through
	// the read-through cache.
	var translatorOpts []tenantauth.Option
	var mappingCache stores.MappingCache
	if redisClient != nil {
		rc := cache.NewReverseMappingCache(redisClient, cfg.Redis.CacheTTL)
		translatorOpts = append(translatorOpts, tenantauth.WithReverseMappingCache(rc))
		mappingCache = rc
	}
	translator := tenantauth.NewTranslator(tenantRepo, memberRepo, translatorOpts...)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes Redis probe when configured)
	router.GET("/ready", readinessHandler(db, redisClient))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	accountHandlers := accounts.NewHandlers(cfg, db)
	storeHandlers := stores.NewHandlers(db, mappingCache)
	productHandlers := products.NewHandlers(cfg, db)
	orderHandlers := orders.NewHandlers(cfg, db)
	settingHandlers := settings.NewHandlers(db)

	// Rate limiters. The distributed limiter is preferred so bursts cannot be
	// multiplied by running more instances.
	rateLimit := func(rlCfg middleware.RateLimitConfig) gin.HandlerFunc {
		if !cfg.Security.RateLimiting.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		var limiter middleware.Limiter
		if redisClient != nil {
			rl := middleware.NewRedisRateLimiter(redisClient, rlCfg)
			bg.stoppers = append(bg.stoppers, rl)
			limiter = rl
		} else {
			rl := middleware.NewRateLimiter(rlCfg)
			bg.stoppers = append(bg.stoppers, rl)
			limiter = rl
		}
		return middleware.RateLimitMiddleware(limiter)
	}
	generalConfig := middleware.DefaultRateLimitConfig()
	if cfg.Security.RateLimiting.RequestsPerMinute > 0 {
		generalConfig.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	}
	if cfg.Security.RateLimiting.Burst > 0 {
		generalConfig.BurstSize = cfg.Security.RateLimiting.Burst
	}

	adminRole := middleware.RequireStoreRole(memberRepo, models.RoleOwner, models.RoleAdmin)

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, strictly rate
		// limited so password guessing stays expensive)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(rateLimit(middleware.AuthRateLimitConfig()))
		{
			authGroup.POST("/register", accountHandlers.RegisterHandler())
			authGroup.POST("/login", accountHandlers.LoginHandler())
		}

		// Authenticated account endpoints. These require credentials but no
		// store scope: they answer "who am I" and "which stores may I scope
		// requests to".
		meGroup := apiV1.Group("")
		meGroup.Use(middleware.AuthMiddleware(userRepo))
		meGroup.Use(rateLimit(generalConfig))
		{
			meGroup.GET("/me", accountHandlers.MeHandler())
			meGroup.GET("/me/stores", accountHandlers.MyStoresHandler())
			meGroup.POST("/stores", storeHandlers.CreateStoreHandler())
		}

		// Store-scoped endpoints. Authentication is optional at the middleware
		// level so the scope guard controls the rejection order; it aborts
		// unauthenticated requests itself once the header format checks pass.
		scoped := apiV1.Group("")
		scoped.Use(middleware.OptionalAuthMiddleware(userRepo))
		scoped.Use(rateLimit(generalConfig))
		scoped.Use(middleware.StoreScopeMiddleware(translator))
		{
			// Store profile and administration
			scoped.GET("/store", storeHandlers.GetStoreHandler())
			scoped.PUT("/store", adminRole, storeHandlers.UpdateStoreHandler())
			scoped.PUT("/store/peer-mapping", adminRole, storeHandlers.SetPeerMappingHandler())
			scoped.DELETE("/store/peer-mapping", adminRole, storeHandlers.DeletePeerMappingHandler())

			// Member management
			scoped.GET("/store/members", adminRole, storeHandlers.ListMembersHandler())
			scoped.POST("/store/members", adminRole, storeHandlers.AddMemberHandler())
			scoped.PUT("/store/members/:user_id", adminRole, storeHandlers.UpdateMemberHandler())
			scoped.DELETE("/store/members/:user_id", adminRole, storeHandlers.RemoveMemberHandler())

			// Product catalog
			scoped.GET("/products", productHandlers.ListProductsHandler())
			scoped.POST("/products", productHandlers.CreateProductHandler())
			scoped.GET("/products/:id", productHandlers.GetProductHandler())
			scoped.PUT("/products/:id", productHandlers.UpdateProductHandler())
			scoped.DELETE("/products/:id", productHandlers.DeleteProductHandler())

			// Orders
			scoped.GET("/orders", orderHandlers.ListOrdersHandler())
			scoped.POST("/orders", orderHandlers.CreateOrderHandler())
			scoped.GET("/orders/:id", orderHandlers.GetOrderHandler())
			scoped.PUT("/orders/:id/status", orderHandlers.UpdateOrderStatusHandler())

			// Settings: reads for any member, writes for owner/admin
			scoped.GET("/settings", settingHandlers.ListSettingsHandler())
			scoped.GET("/settings/:key", settingHandlers.GetSettingHandler())
			scoped.PUT("/settings/:key", adminRole, settingHandlers.SetSettingHandler())
			scoped.DELETE("/settings/:key", adminRole, settingHandlers.DeleteSettingHandler())
		}
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and, when configured, Redis connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks: map, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks: map"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also probes Redis when configured.
// A Redis outage degrades (cache misses, local rate limiting) rather than
// breaking requests, so it is reported in checks but does not fail readiness.
func readinessHandler(db *sql.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if redisClient != nil {
			if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
				checks["redis"] = "degraded"
			} else {
				checks["redis"] = "healthy"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	attrs := []slog.Attr{
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	}
	// Store-scoped requests also log the resolved scope, never the raw header.
	if storeID := c.GetString(middleware.StoreIDKey); storeID != "" {
		attrs = append(attrs, slog.String("store_id", storeID))
	}
	slog.LogAttrs(c.Request.Context(), slog.LevelInfo, "http request", attrs...)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			methods := cfg.Security.CORS.AllowedMethods
			if len(methods) == 0 {
				methods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", strings.Join(methods, ", "))
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, x-store-id")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
