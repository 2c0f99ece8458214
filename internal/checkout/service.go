// Package checkout drives the step flow and submits the resulting order and
// payment requests against the remote backend.
package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/cart"
	"github.com/brunoshop/storefront/internal/coupon"
	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/internal/orders"
	"github.com/brunoshop/storefront/internal/pricing"
	"github.com/brunoshop/storefront/pkg/errors"
)

type Service struct {
	carts   *cart.Store
	coupons *coupon.Service
	orders  *orders.Client
	logger  *zap.Logger

	bypassPayment bool
	returnURL     string
}

// NewService creates a checkout service
func NewService(carts *cart.Store, coupons *coupon.Service, ordersClient *orders.Client, bypassPayment bool, returnURL string, logger *zap.Logger) *Service {
	return &Service{
		carts:         carts,
		coupons:       coupons,
		orders:        ordersClient,
		logger:        logger,
		bypassPayment: bypassPayment,
		returnURL:     returnURL,
	}
}

// BuyNowOrder carries the single item of a direct buy-now checkout that
// bypasses the cart. Its coupon, if any, is the session this service's coupon
// store holds for the (shopper, product) pair, never a request value.
type BuyNowOrder struct {
	Item domain.CartItem
}

// Confirmation is the outcome of a submitted checkout
type Confirmation struct {
	Reference     string                          `json:"reference"`
	Order         *orders.CreatedOrder            `json:"order"`
	Payment       *orders.CheckoutPaymentResponse `json:"payment"`
	CouponCode    string                          `json:"coupon_code,omitempty"`
	DiscountTotal float64                         `json:"discount_total"`
	ShippingTotal float64                         `json:"shipping_total"`
	GrandTotal    float64                         `json:"grand_total"`
	IsBuyNow      bool                            `json:"is_buy_now"`
}

// Submit places the order from the flow's final step. The regular path
// consumes the shopper's cart (and clears it on success); the buy-now path
// consumes only the given item and never touches the cart. Submission is not
// cancellable: it completes or reports failure leaving prior state intact.
func (s *Service) Submit(ctx context.Context, shopperKey string, flow *Flow, buyNow *BuyNowOrder) (*Confirmation, error) {
	if flow.Step() != domain.StepPaymentMethod {
		return nil, &errors.ErrInvalidStateTransition{From: flow.Step(), To: domain.StepSubmitted}
	}
	// Re-validate everything; earlier steps could have been mutated since.
	if err := flow.validateContact(); err != nil {
		return nil, err
	}
	if err := flow.validateShipping(); err != nil {
		return nil, err
	}

	items, couponCode, discountTotal, err := s.checkoutLines(ctx, shopperKey, buyNow)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &errors.ErrEmptyCart{}
	}

	totals := pricing.Calculate(items, discountTotal).Rounded()
	reference := uuid.New().String()

	contact := flow.Contact()
	shipping := flow.Shipping()
	order, err := s.orders.CreateOrder(ctx, orders.CreateOrderRequest{
		CustomerName:    strings.TrimSpace(fmt.Sprintf("%s %s", contact.FirstName, contact.LastName)),
		CustomerEmail:   flow.Email(),
		ShippingAddress: fmt.Sprintf("%s, %s %s, %s", shipping.Address, shipping.PostalCode, shipping.City, shipping.Country),
		ShippingRegion:  shipping.City,
		Items:           orderItems(items),
		DiscountTotal:   totals.Discount,
	})
	if err != nil {
		return nil, err
	}

	payment, err := s.initiatePayment(ctx, order, flow)
	if err != nil {
		return nil, err
	}

	if err := flow.markSubmitted(); err != nil {
		return nil, err
	}

	if buyNow == nil {
		if err := s.carts.ClearCart(ctx, shopperKey); err != nil {
			s.logger.Warn("Failed to clear cart after checkout", zap.String("shopper", shopperKey), zap.Error(err))
		}
	} else {
		// The session is consumed by the order it discounted.
		if err := s.coupons.ClearBuyNow(ctx, shopperKey, buyNow.Item.ResolveProductID()); err != nil {
			s.logger.Warn("Failed to clear buy-now coupon after checkout", zap.String("shopper", shopperKey), zap.Error(err))
		}
	}

	s.logger.Info("Checkout submitted",
		zap.String("shopper", shopperKey),
		zap.String("reference", reference),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("grand_total", totals.GrandTotal),
		zap.Bool("buy_now", buyNow != nil),
	)

	return &Confirmation{
		Reference:     reference,
		Order:         order,
		Payment:       payment,
		CouponCode:    couponCode,
		DiscountTotal: totals.Discount,
		ShippingTotal: totals.Shipping,
		GrandTotal:    totals.GrandTotal,
		IsBuyNow:      buyNow != nil,
	}, nil
}

// checkoutLines picks the items and effective discount for this checkout:
// the buy-now item with its stored unexpired coupon session, or the cart with
// its applied coupon clamped to the live subtotal.
func (s *Service) checkoutLines(ctx context.Context, shopperKey string, buyNow *BuyNowOrder) ([]domain.CartItem, string, float64, error) {
	if buyNow != nil {
		if !validCheckoutItem(buyNow.Item) {
			return nil, "", 0, &errors.ErrValidation{Message: "Invalid buy-now item."}
		}
		items := []domain.CartItem{buyNow.Item}

		// The discount is whatever session this service persisted for the
		// pair; an expired session reads as absent. Request payloads carry
		// no discount.
		session, _, err := s.coupons.BuyNow(ctx, shopperKey, buyNow.Item.ResolveProductID())
		if err != nil {
			return nil, "", 0, err
		}
		if session == nil {
			return items, "", 0, nil
		}
		return items, session.Code, pricing.ClampDiscount(session.Discount, pricing.Subtotal(items)), nil
	}

	items, err := s.carts.Items(ctx, shopperKey)
	if err != nil {
		return nil, "", 0, err
	}
	code, effective, err := s.coupons.EffectiveDiscount(ctx, shopperKey)
	if err != nil {
		return nil, "", 0, err
	}
	return items, code, effective, nil
}

func (s *Service) initiatePayment(ctx context.Context, order *orders.CreatedOrder, flow *Flow) (*orders.CheckoutPaymentResponse, error) {
	if s.bypassPayment {
		return &orders.CheckoutPaymentResponse{
			Payment: orders.Payment{Provider: "manual", Method: "manual", Status: "pending"},
		}, nil
	}

	method := flow.PaymentMethod()
	provider := method.Provider()
	return s.orders.InitiatePayment(ctx, orders.CheckoutPaymentRequest{
		OrderID:  order.ID,
		Provider: provider,
		Method:   method.APIMethod(),
		Customer: orders.PaymentCustomer{
			Phone: flow.Contact().Phone,
			Email: flow.Email(),
		},
		CallbackURL: s.orders.CallbackURL(provider),
		ReturnURL:   s.returnURL,
	})
}

func orderItems(items []domain.CartItem) []orders.OrderItem {
	lines := make([]orders.OrderItem, 0, len(items))
	for _, item := range items {
		var variantID *string
		if item.VariantID != "" {
			v := item.VariantID
			variantID = &v
		}
		lines = append(lines, orders.OrderItem{
			ProductID:   item.ResolveProductID(),
			VariantID:   variantID,
			ProductName: item.Name,
			SKU:         skuFor(item),
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		})
	}
	return lines
}

// skuFor falls back variant -> product -> composite id, matching what the
// order API accepts for legacy items.
func skuFor(item domain.CartItem) string {
	if item.VariantID != "" {
		return item.VariantID
	}
	if item.ProductID != "" {
		return item.ProductID
	}
	return item.ID
}

func validCheckoutItem(item domain.CartItem) bool {
	return item.ID != "" && item.Name != "" && item.Image != "" &&
		item.Price >= 0 && item.Quantity > 0
}
