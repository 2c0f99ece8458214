package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/api/middleware"
	"github.com/brunoshop/storefront/internal/cart"
	"github.com/brunoshop/storefront/internal/coupon"
	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/internal/pricing"
)

// AddItemRequest is the add-to-cart payload
type AddItemRequest struct {
	ID            string   `json:"id" binding:"required"`
	ProductID     string   `json:"product_id"`
	VariantID     string   `json:"variant_id"`
	CategoryID    string   `json:"category_id"`
	Name          string   `json:"name" binding:"required"`
	Price         float64  `json:"price" binding:"min=0"`
	OriginalPrice *float64 `json:"original_price"`
	Image         string   `json:"image" binding:"required"`
	Quantity      int      `json:"quantity" binding:"required,min=1"`
	SelectedSize  string   `json:"selected_size"`
	SelectedColor string   `json:"selected_color"`
}

func (r AddItemRequest) toDomain() domain.CartItem {
	return domain.CartItem{
		ID:            r.ID,
		ProductID:     r.ProductID,
		VariantID:     r.VariantID,
		CategoryID:    r.CategoryID,
		Name:          r.Name,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Image:         r.Image,
		Quantity:      r.Quantity,
		SelectedSize:  r.SelectedSize,
		SelectedColor: r.SelectedColor,
	}
}

// UpdateQuantityRequest is the quantity-change payload; zero or negative
// removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// CartResponse is the cart view with live totals
type CartResponse struct {
	Items  []domain.CartItem `json:"items"`
	Coupon *CouponView       `json:"coupon"`
	Totals pricing.Totals    `json:"totals"`
}

// CouponView is the applied coupon with its live clamped discount
type CouponView struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

// HandleGetCart handles GET /v1/cart
func HandleGetCart(carts *cart.Store, coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		items, err := carts.Items(c.Request.Context(), shopperKey)
		if err != nil {
			logger.Error("Failed to load cart", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(c, carts, coupons, logger, shopperKey, items))
	}
}

// HandleAddItem handles POST /v1/cart/items
func HandleAddItem(carts *cart.Store, coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		var req AddItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		items, err := carts.AddItem(c.Request.Context(), shopperKey, req.toDomain())
		if err != nil {
			logger.Error("Failed to add cart item", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(c, carts, coupons, logger, shopperKey, items))
	}
}

// HandleUpdateQuantity handles PATCH /v1/cart/items/:id
func HandleUpdateQuantity(carts *cart.Store, coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)
		itemID := c.Param("id")

		var req UpdateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		items, err := carts.UpdateQuantity(c.Request.Context(), shopperKey, itemID, *req.Quantity)
		if err != nil {
			logger.Error("Failed to update quantity", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(c, carts, coupons, logger, shopperKey, items))
	}
}

// HandleRemoveItem handles DELETE /v1/cart/items/:id
func HandleRemoveItem(carts *cart.Store, coupons *coupon.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		items, err := carts.RemoveItem(c.Request.Context(), shopperKey, c.Param("id"))
		if err != nil {
			logger.Error("Failed to remove cart item", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.JSON(http.StatusOK, cartResponse(c, carts, coupons, logger, shopperKey, items))
	}
}

// HandleClearCart handles DELETE /v1/cart
func HandleClearCart(carts *cart.Store, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		if err := carts.ClearCart(c.Request.Context(), shopperKey); err != nil {
			logger.Error("Failed to clear cart", zap.String("shopper", shopperKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// cartResponse assembles the cart view: items, the applied coupon with its
// discount clamped to the live subtotal, and rounded totals.
func cartResponse(c *gin.Context, carts *cart.Store, coupons *coupon.Service, logger *zap.Logger, shopperKey string, items []domain.CartItem) CartResponse {
	code, effective, err := coupons.EffectiveDiscount(c.Request.Context(), shopperKey)
	if err != nil {
		logger.Warn("Failed to load applied coupon", zap.String("shopper", shopperKey), zap.Error(err))
	}

	response := CartResponse{
		Items:  items,
		Totals: pricing.Calculate(items, effective).Rounded(),
	}
	if code != "" {
		response.Coupon = &CouponView{Code: code, Discount: pricing.Round2(effective)}
	}
	return response
}
