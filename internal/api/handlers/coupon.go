package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/api/middleware"
	"github.com/brunoshop/storefront/internal/coupon"
	"github.com/brunoshop/storefront/pkg/errors"
)

// ApplyCouponRequest carries the coupon code to evaluate
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyBuyNowCouponRequest evaluates a coupon for a single buy-now item
type ApplyBuyNowCouponRequest struct {
	Code string         `json:"code" binding:"required"`
	Item AddItemRequest `json:"item" binding:"required"`
}

// HandleApplyCoupon handles POST /v1/cart/coupon
func HandleApplyCoupon(coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		var req ApplyCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		applied, err := coupons.Apply(c.Request.Context(), shopperKey, req.Code)
		if err != nil {
			respondCouponError(c, logger, shopperKey, err)
			return
		}

		c.JSON(http.StatusOK, applied)
	}
}

// HandleListCoupons handles GET /v1/coupons
func HandleListCoupons(coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		available, err := coupons.Available(c.Request.Context())
		if err != nil {
			logger.Error("Failed to list coupons", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load coupons"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"coupons": available})
	}
}

// HandleRemoveCoupon handles DELETE /v1/cart/coupon
func HandleRemoveCoupon(coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		if err := coupons.Remove(c.Request.Context(), shopperKey); err != nil {
			logger.Error("Failed to remove coupon", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// HandleApplyBuyNowCoupon handles POST /v1/products/:id/buy-now-coupon
func HandleApplyBuyNowCoupon(coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)
		productID := c.Param("id")

		var req ApplyBuyNowCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		session, err := coupons.ApplyBuyNow(c.Request.Context(), shopperKey, productID, req.Code, req.Item.toDomain())
		if err != nil {
			respondCouponError(c, logger, shopperKey, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

// HandleGetBuyNowCoupon handles GET /v1/products/:id/buy-now-coupon
func HandleGetBuyNowCoupon(coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)
		productID := c.Param("id")

		session, expired, err := coupons.BuyNow(c.Request.Context(), shopperKey, productID)
		if err != nil {
			logger.Error("Failed to load buy-now coupon", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"coupon":  session,
			"expired": expired,
		})
	}
}

// HandleClearBuyNowCoupon handles DELETE /v1/products/:id/buy-now-coupon
func HandleClearBuyNowCoupon(coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		if err := coupons.ClearBuyNow(c.Request.Context(), shopperKey, c.Param("id")); err != nil {
			logger.Error("Failed to clear buy-now coupon", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// respondCouponError maps local validation failures to 422 and remote
// evaluation failures to 502; prior applied state is untouched either way.
func respondCouponError(c *gin.Context, logger *zap.Logger, shopperKey string, err error) {
	var validation *errors.ErrValidation
	var emptyCart *errors.ErrEmptyCart
	if stderrors.As(err, &validation) || stderrors.As(err, &emptyCart) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	logger.Warn("Coupon evaluation failed", zap.String("shopper", shopperKey), zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "failed to apply coupon"})
}
