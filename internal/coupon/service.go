// Package coupon applies and removes discounts. The cart-wide coupon lives
// with the shopper's cart; the buy-now coupon is an independent TTL-bound
// session scoped to one (shopper, product) pair.
package coupon

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/cart"
	"github.com/brunoshop/storefront/internal/discount"
	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/internal/pricing"
	"github.com/brunoshop/storefront/internal/storage"
	"github.com/brunoshop/storefront/pkg/errors"
)

// DefaultBuyNowTTL bounds a buy-now coupon session.
const DefaultBuyNowTTL = 5 * time.Minute

type Service struct {
	kv        storage.KV
	carts     *cart.Store
	evaluator *discount.Client
	logger    *zap.Logger
	ttl       time.Duration
	now       func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewService creates a coupon service. A non-positive ttl falls back to the
// default five minutes.
func NewService(kv storage.KV, carts *cart.Store, evaluator *discount.Client, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultBuyNowTTL
	}
	return &Service{
		kv:        kv,
		carts:     carts,
		evaluator: evaluator,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
		timers:    make(map[string]*time.Timer),
	}
}

// Apply evaluates a coupon code against the shopper's current cart and, on
// success, stores it as the cart's applied coupon. Empty code or empty cart
// fail locally without a remote call; a remote failure leaves any previously
// applied coupon untouched.
func (s *Service) Apply(ctx context.Context, shopperKey, rawCode string) (*domain.AppliedCoupon, error) {
	code := normalizeCode(rawCode)
	if code == "" {
		return nil, &errors.ErrValidation{Message: "Enter a coupon code"}
	}

	items, err := s.carts.Items(ctx, shopperKey)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &errors.ErrEmptyCart{}
	}

	result, err := s.evaluator.Apply(ctx, code, lineItems(items))
	if err != nil {
		return nil, err
	}

	discountAmount := result.Discount
	if discountAmount < 0 {
		discountAmount = 0
	}
	applied := &domain.AppliedCoupon{
		ID:       result.CouponID,
		Code:     code,
		Discount: discountAmount,
	}
	if err := s.carts.SetCoupon(ctx, shopperKey, applied); err != nil {
		return nil, err
	}

	s.logger.Info("Coupon applied",
		zap.String("shopper", shopperKey),
		zap.String("code", code),
		zap.Float64("discount", applied.Discount),
	)
	return applied, nil
}

// Remove clears the cart's applied coupon unconditionally.
func (s *Service) Remove(ctx context.Context, shopperKey string) error {
	return s.carts.RemoveCoupon(ctx, shopperKey)
}

// Available lists the coupons a shopper could apply right now: active, not
// past expiry, and not usage-exhausted. Amounts still come from evaluation;
// this is display data only.
func (s *Service) Available(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.evaluator.ListCoupons(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	available := make([]domain.Coupon, 0, len(coupons))
	for _, c := range coupons {
		if !c.IsActive {
			continue
		}
		if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
			continue
		}
		if c.ExpiresAt != nil {
			if expiry, err := time.Parse(time.RFC3339, *c.ExpiresAt); err == nil && !expiry.After(now) {
				continue
			}
		}
		available = append(available, c)
	}
	return available, nil
}

// EffectiveDiscount recomputes the discount exposed to pricing against the
// live subtotal, so removing items never lets the discount exceed it.
func (s *Service) EffectiveDiscount(ctx context.Context, shopperKey string) (string, float64, error) {
	applied, err := s.carts.Coupon(ctx, shopperKey)
	if err != nil {
		return "", 0, err
	}
	if applied == nil {
		return "", 0, nil
	}

	items, err := s.carts.Items(ctx, shopperKey)
	if err != nil {
		return "", 0, err
	}
	return applied.Code, pricing.ClampDiscount(applied.Discount, pricing.Subtotal(items)), nil
}

// ApplyBuyNow evaluates a coupon for a single buy-now item and opens a
// TTL-bound session for the (shopper, product) pair. The session carries an
// absolute expiry and is cleared proactively by a timer at that deadline.
func (s *Service) ApplyBuyNow(ctx context.Context, shopperKey, productID, rawCode string, item domain.CartItem) (*domain.BuyNowCoupon, error) {
	code := normalizeCode(rawCode)
	if code == "" {
		return nil, &errors.ErrValidation{Message: "Please enter a coupon code."}
	}
	if !validBuyNowItem(item) {
		return nil, &errors.ErrValidation{Message: "Product is not ready for coupon check."}
	}

	result, err := s.evaluator.Apply(ctx, code, lineItems([]domain.CartItem{item}))
	if err != nil {
		return nil, err
	}

	discountAmount := result.Discount
	if discountAmount < 0 {
		discountAmount = 0
	}

	expiresAt := s.now().Add(s.ttl)
	session := &domain.BuyNowCoupon{
		Code:      code,
		Discount:  discountAmount,
		ExpiresAt: expiresAt.UnixMilli(),
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	key := storage.BuyNowCouponKey(shopperKey, productID)
	if err := s.kv.SetTTL(ctx, key, raw, s.ttl); err != nil {
		return nil, err
	}

	s.scheduleExpiry(key, s.ttl)
	s.logger.Info("Buy-now coupon session opened",
		zap.String("shopper", shopperKey),
		zap.String("product", productID),
		zap.String("code", code),
		zap.Time("expires_at", expiresAt),
	)
	return session, nil
}

// BuyNow reads the session for the pair. A session read at or past its expiry
// is treated as absent, its stored entry removed, and expired=true reported
// so the caller can surface "expired" rather than "none".
func (s *Service) BuyNow(ctx context.Context, shopperKey, productID string) (*domain.BuyNowCoupon, bool, error) {
	key := storage.BuyNowCouponKey(shopperKey, productID)

	raw, err := s.kv.Get(ctx, key)
	if err == storage.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	session := decodeBuyNow(raw)
	if session == nil {
		return nil, false, nil
	}

	if s.now().UnixMilli() >= session.ExpiresAt {
		if err := s.clearSession(ctx, key); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}
	return session, false, nil
}

// ClearBuyNow discards the session explicitly.
func (s *Service) ClearBuyNow(ctx context.Context, shopperKey, productID string) error {
	return s.clearSession(ctx, storage.BuyNowCouponKey(shopperKey, productID))
}

// Close cancels all pending expiry timers. Call on shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *Service) clearSession(ctx context.Context, key string) error {
	s.cancelExpiry(key)
	return s.kv.Delete(ctx, key)
}

// scheduleExpiry arms a timer that removes the session exactly at expiry even
// if nothing reads it again. Re-applying replaces the previous timer.
func (s *Service) scheduleExpiry(key string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.timers[key]; ok {
		existing.Stop()
	}
	s.timers[key] = time.AfterFunc(ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.Warn("Failed to clear expired buy-now coupon", zap.String("key", key), zap.Error(err))
		}
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
	})
}

func (s *Service) cancelExpiry(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

func normalizeCode(rawCode string) string {
	return strings.ToUpper(strings.TrimSpace(rawCode))
}

// lineItems builds the per-line breakdown the evaluator expects.
func lineItems(items []domain.CartItem) []discount.LineItem {
	lines := make([]discount.LineItem, 0, len(items))
	for _, item := range items {
		var categoryID *string
		if item.CategoryID != "" {
			category := item.CategoryID
			categoryID = &category
		}
		lines = append(lines, discount.LineItem{
			ProductID:  item.ResolveProductID(),
			CategoryID: categoryID,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price,
			LineTotal:  float64(item.Quantity) * item.Price,
		})
	}
	return lines
}

func validBuyNowItem(item domain.CartItem) bool {
	return item.ID != "" && item.Name != "" && item.Image != "" &&
		item.Price >= 0 && item.Quantity > 0
}

func decodeBuyNow(raw []byte) *domain.BuyNowCoupon {
	var stored struct {
		Code      string   `json:"code"`
		Discount  *float64 `json:"discount"`
		ExpiresAt *int64   `json:"expires_at"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil
	}
	if stored.Code == "" || stored.Discount == nil || stored.ExpiresAt == nil {
		return nil
	}

	discountAmount := *stored.Discount
	if discountAmount < 0 {
		discountAmount = 0
	}
	return &domain.BuyNowCoupon{
		Code:      strings.ToUpper(stored.Code),
		Discount:  discountAmount,
		ExpiresAt: *stored.ExpiresAt,
	}
}
