package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/api/handlers"
	"github.com/brunoshop/storefront/internal/api/middleware"
	"github.com/brunoshop/storefront/internal/cart"
	"github.com/brunoshop/storefront/internal/catalog"
	"github.com/brunoshop/storefront/internal/checkout"
	"github.com/brunoshop/storefront/internal/config"
	"github.com/brunoshop/storefront/internal/coupon"
)

// Services bundles the engine's components for route wiring. Constructed once
// at the composition root and passed by reference; no package-level state.
type Services struct {
	Carts     *cart.Store
	Coupons   *coupon.Service
	Checkouts *checkout.Service
	Catalog   *catalog.Client
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, services *Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.ShopperKeyMiddleware())
	{
		v1.GET("/products/:id/resolve", handlers.HandleResolveVariant(services.Catalog, logger))

		v1.GET("/cart", handlers.HandleGetCart(services.Carts, services.Coupons, logger))
		v1.POST("/cart/items", handlers.HandleAddItem(services.Carts, services.Coupons, logger))
		v1.PATCH("/cart/items/:id", handlers.HandleUpdateQuantity(services.Carts, services.Coupons, logger))
		v1.DELETE("/cart/items/:id", handlers.HandleRemoveItem(services.Carts, services.Coupons, logger))
		v1.DELETE("/cart", handlers.HandleClearCart(services.Carts, logger))

		v1.POST("/cart/coupon", handlers.HandleApplyCoupon(services.Coupons, logger))
		v1.DELETE("/cart/coupon", handlers.HandleRemoveCoupon(services.Coupons, logger))
		v1.GET("/coupons", handlers.HandleListCoupons(services.Coupons, logger))

		v1.POST("/products/:id/buy-now-coupon", handlers.HandleApplyBuyNowCoupon(services.Coupons, logger))
		v1.GET("/products/:id/buy-now-coupon", handlers.HandleGetBuyNowCoupon(services.Coupons, logger))
		v1.DELETE("/products/:id/buy-now-coupon", handlers.HandleClearBuyNowCoupon(services.Coupons, logger))

		v1.POST("/checkout", handlers.HandleCheckout(services.Checkouts, logger))
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
