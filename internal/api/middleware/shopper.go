package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/brunoshop/storefront/internal/domain"
)

const (
	shopperKeyContext   = "shopperKey"
	shopperEmailContext = "shopperEmail"

	// ShopperEmailHeader carries the signed-in shopper's email; absent means
	// the guest partition.
	ShopperEmailHeader = "X-Shopper-Email"
)

// ShopperKeyMiddleware derives the normalized shopper key that namespaces all
// persisted cart and coupon state for the request.
func ShopperKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetHeader(ShopperEmailHeader)
		c.Set(shopperEmailContext, email)
		c.Set(shopperKeyContext, domain.ShopperKey(email))
		c.Next()
	}
}

// GetShopperKey returns the request's shopper key.
func GetShopperKey(c *gin.Context) string {
	if key, ok := c.Get(shopperKeyContext); ok {
		if s, ok := key.(string); ok {
			return s
		}
	}
	return domain.GuestShopperKey
}

// GetShopperEmail returns the raw email header, empty for guests.
func GetShopperEmail(c *gin.Context) string {
	if email, ok := c.Get(shopperEmailContext); ok {
		if s, ok := email.(string); ok {
			return s
		}
	}
	return ""
}
