package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/api/middleware"
	"github.com/brunoshop/storefront/internal/checkout"
	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/pkg/errors"
)

// CheckoutRequest carries everything the step flow needs: contact and
// shipping data, the payment selection, and optionally a buy-now item. Any
// buy-now coupon session is looked up server-side, never taken from the body.
type CheckoutRequest struct {
	Contact       checkout.ContactInfo     `json:"contact" binding:"required"`
	Shipping      checkout.ShippingAddress `json:"shipping" binding:"required"`
	PaymentMethod domain.PaymentMethod     `json:"payment_method" binding:"required"`
	BuyNowItem    *AddItemRequest          `json:"buy_now_item"`
}

// HandleCheckout handles POST /v1/checkout. The request is walked through the
// step machine so submission stays reachable only via validated transitions.
func HandleCheckout(checkouts *checkout.Service, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopperKey := middleware.GetShopperKey(c)

		var req CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":   "validation failed",
				"details": err.Error(),
			})
			return
		}

		flow := checkout.NewFlow()
		flow.SetSignedInEmail(middleware.GetShopperEmail(c))
		flow.SetContactInfo(req.Contact)
		if err := flow.Next(); err != nil {
			respondCheckoutError(c, logger, shopperKey, err)
			return
		}
		flow.SetShippingAddress(req.Shipping)
		if err := flow.Next(); err != nil {
			respondCheckoutError(c, logger, shopperKey, err)
			return
		}
		if err := flow.SetPaymentMethod(req.PaymentMethod); err != nil {
			respondCheckoutError(c, logger, shopperKey, err)
			return
		}

		var buyNow *checkout.BuyNowOrder
		if req.BuyNowItem != nil {
			buyNow = &checkout.BuyNowOrder{Item: req.BuyNowItem.toDomain()}
		}

		confirmation, err := checkouts.Submit(c.Request.Context(), shopperKey, flow, buyNow)
		if err != nil {
			respondCheckoutError(c, logger, shopperKey, err)
			return
		}

		c.JSON(http.StatusOK, confirmation)
	}
}

func respondCheckoutError(c *gin.Context, logger *zap.Logger, shopperKey string, err error) {
	var validation *errors.ErrValidation
	var emptyCart *errors.ErrEmptyCart
	if stderrors.As(err, &validation) || stderrors.As(err, &emptyCart) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	var transition *errors.ErrInvalidStateTransition
	if stderrors.As(err, &transition) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	logger.Error("Checkout failed", zap.String("shopper", shopperKey), zap.Error(err))
	c.JSON(http.StatusBadGateway, gin.H{"error": "checkout failed"})
}
