package coupon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/cart"
	"github.com/brunoshop/storefront/internal/discount"
	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/internal/pricing"
	"github.com/brunoshop/storefront/internal/storage"
	"github.com/brunoshop/storefront/pkg/errors"
)

type evaluatorStub struct {
	status   int
	response discount.ApplyResponse
	coupons  []domain.Coupon
	calls    int
	lastBody discount.ApplyRequest
}

func (e *evaluatorStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/discounts/coupons" {
			_ = json.NewEncoder(w).Encode(e.coupons)
			return
		}
		e.calls++
		_ = json.NewDecoder(r.Body).Decode(&e.lastBody)
		if e.status != http.StatusOK {
			w.WriteHeader(e.status)
			_, _ = w.Write([]byte(`{"error":"invalid coupon"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(e.response)
	}
}

func newTestService(t *testing.T, stub *evaluatorStub) (*Service, *cart.Store, *storage.MemoryKV) {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	kv := storage.NewMemoryKV()
	carts := cart.NewStore(kv, zap.NewNop())
	evaluator := discount.NewClient(server.URL, zap.NewNop())
	service := NewService(kv, carts, evaluator, 5*time.Minute, zap.NewNop())
	t.Cleanup(service.Close)

	return service, carts, kv
}

func seedCart(t *testing.T, carts *cart.Store, shopperKey string, items ...domain.CartItem) {
	t.Helper()
	for _, item := range items {
		_, err := carts.AddItem(context.Background(), shopperKey, item)
		require.NoError(t, err)
	}
}

func cartLine(id string, price float64, quantity int) domain.CartItem {
	return domain.CartItem{
		ID:         id,
		ProductID:  id,
		CategoryID: "c1",
		Name:       "Item " + id,
		Image:      id + ".jpg",
		Price:      price,
		Quantity:   quantity,
	}
}

func TestApply_StoresNormalizedCoupon(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 7, Discount: 10}}
	service, carts, _ := newTestService(t, stub)
	ctx := context.Background()

	seedCart(t, carts, "guest", cartLine("p1", 30, 1))

	applied, err := service.Apply(ctx, "guest", "  save10 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", applied.Code)
	assert.Equal(t, 10.0, applied.Discount)
	assert.Equal(t, int64(7), applied.ID)

	stored, err := carts.Coupon(ctx, "guest")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "SAVE10", stored.Code)

	// The evaluator saw the normalized code and the line breakdown.
	assert.Equal(t, "SAVE10", stub.lastBody.Code)
	require.Len(t, stub.lastBody.Items, 1)
	assert.Equal(t, 30.0, stub.lastBody.Items[0].LineTotal)
}

func TestApply_EmptyCodeFailsWithoutRemoteCall(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK}
	service, carts, _ := newTestService(t, stub)

	seedCart(t, carts, "guest", cartLine("p1", 30, 1))

	_, err := service.Apply(context.Background(), "guest", "   ")
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Enter a coupon code", validation.Message)
	assert.Zero(t, stub.calls)
}

func TestApply_EmptyCartFailsWithoutRemoteCall(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK}
	service, _, _ := newTestService(t, stub)

	_, err := service.Apply(context.Background(), "guest", "SAVE10")
	var emptyCart *errors.ErrEmptyCart
	require.ErrorAs(t, err, &emptyCart)
	assert.Zero(t, stub.calls)
}

func TestApply_RejectionLeavesPriorCouponUntouched(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 7, Discount: 10}}
	service, carts, _ := newTestService(t, stub)
	ctx := context.Background()

	seedCart(t, carts, "guest", cartLine("p1", 30, 1))

	_, err := service.Apply(ctx, "guest", "SAVE10")
	require.NoError(t, err)

	stub.status = http.StatusUnprocessableEntity
	_, err = service.Apply(ctx, "guest", "BOGUS")
	require.Error(t, err)

	stored, err := carts.Coupon(ctx, "guest")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "SAVE10", stored.Code)
}

func TestEffectiveDiscount_ClampsToLiveSubtotal(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 7, Discount: 25}}
	service, carts, _ := newTestService(t, stub)
	ctx := context.Background()

	seedCart(t, carts, "guest", cartLine("p1", 20, 1), cartLine("p2", 15, 1))

	_, err := service.Apply(ctx, "guest", "SAVE25")
	require.NoError(t, err)

	// Removing an item drops the subtotal below the stored discount; the
	// effective discount follows the live subtotal.
	_, err = carts.RemoveItem(ctx, "guest", "p1")
	require.NoError(t, err)

	code, effective, err := service.EffectiveDiscount(ctx, "guest")
	require.NoError(t, err)
	assert.Equal(t, "SAVE25", code)
	assert.Equal(t, 15.0, effective)

	totals := pricing.Calculate([]domain.CartItem{cartLine("p2", 15, 1)}, effective)
	assert.Equal(t, 0.0, totals.SubtotalAfterDiscount)
	assert.Equal(t, pricing.ShippingFee, totals.GrandTotal)
}

func TestEffectiveDiscount_NoCoupon(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK}
	service, _, _ := newTestService(t, stub)

	code, effective, err := service.EffectiveDiscount(context.Background(), "guest")
	require.NoError(t, err)
	assert.Empty(t, code)
	assert.Zero(t, effective)
}

func TestRemove_ClearsCoupon(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 7, Discount: 10}}
	service, carts, _ := newTestService(t, stub)
	ctx := context.Background()

	seedCart(t, carts, "guest", cartLine("p1", 30, 1))
	_, err := service.Apply(ctx, "guest", "SAVE10")
	require.NoError(t, err)

	require.NoError(t, service.Remove(ctx, "guest"))

	stored, err := carts.Coupon(ctx, "guest")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestAvailable_FiltersInactiveExpiredAndExhausted(t *testing.T) {
	past := time.Now().Add(-time.Hour).Format(time.RFC3339)
	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	exhausted := 3
	open := 100

	stub := &evaluatorStub{status: http.StatusOK, coupons: []domain.Coupon{
		{ID: 1, Code: "LIVE", Type: domain.CouponTypeFixed, Value: 10, RestrictionType: domain.RestrictionGlobal, IsActive: true},
		{ID: 2, Code: "DATED", Type: domain.CouponTypePercentage, Value: 15, RestrictionType: domain.RestrictionGlobal, ExpiresAt: &future, UsageLimit: &open, UsageCount: 4, IsActive: true},
		{ID: 3, Code: "OFF", Type: domain.CouponTypeFixed, Value: 5, RestrictionType: domain.RestrictionGlobal, IsActive: false},
		{ID: 4, Code: "PAST", Type: domain.CouponTypeFixed, Value: 5, RestrictionType: domain.RestrictionGlobal, ExpiresAt: &past, IsActive: true},
		{ID: 5, Code: "USED", Type: domain.CouponTypeFixed, Value: 5, RestrictionType: domain.RestrictionGlobal, UsageLimit: &exhausted, UsageCount: 3, IsActive: true},
	}}
	service, _, _ := newTestService(t, stub)

	available, err := service.Available(context.Background())
	require.NoError(t, err)

	codes := make([]string, 0, len(available))
	for _, c := range available {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{"LIVE", "DATED"}, codes)
}

func TestApplyBuyNow_OpensSessionWithExpiry(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 3, Discount: 5}}
	service, _, kv := newTestService(t, stub)
	ctx := context.Background()

	start := time.Now()
	service.now = func() time.Time { return start }

	session, err := service.ApplyBuyNow(ctx, "guest", "p42", "flash5", cartLine("p42", 30, 1))
	require.NoError(t, err)
	assert.Equal(t, "FLASH5", session.Code)
	assert.Equal(t, 5.0, session.Discount)
	assert.Equal(t, start.Add(5*time.Minute).UnixMilli(), session.ExpiresAt)

	raw, err := kv.Get(ctx, storage.BuyNowCouponKey("guest", "p42"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"expires_at"`)
}

func TestApplyBuyNow_RejectsIncompleteItem(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK}
	service, _, _ := newTestService(t, stub)

	item := cartLine("p42", 30, 1)
	item.Image = ""

	_, err := service.ApplyBuyNow(context.Background(), "guest", "p42", "FLASH5", item)
	var validation *errors.ErrValidation
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "Product is not ready for coupon check.", validation.Message)
	assert.Zero(t, stub.calls)
}

func TestBuyNow_ExpiredSessionReadsAsAbsent(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 3, Discount: 5}}
	service, _, kv := newTestService(t, stub)
	ctx := context.Background()

	start := time.Now()
	service.now = func() time.Time { return start }

	_, err := service.ApplyBuyNow(ctx, "guest", "p42", "FLASH5", cartLine("p42", 30, 1))
	require.NoError(t, err)

	// Just before expiry the session is live.
	service.now = func() time.Time { return start.Add(5*time.Minute - time.Second) }
	session, expired, err := service.BuyNow(ctx, "guest", "p42")
	require.NoError(t, err)
	assert.False(t, expired)
	require.NotNil(t, session)

	// At expiry the read reports expired, returns nothing, and removes
	// the stored entry.
	service.now = func() time.Time { return start.Add(5 * time.Minute) }
	session, expired, err = service.BuyNow(ctx, "guest", "p42")
	require.NoError(t, err)
	assert.True(t, expired)
	assert.Nil(t, session)

	_, err = kv.Get(ctx, storage.BuyNowCouponKey("guest", "p42"))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// A second read is a plain miss, not another expiry.
	session, expired, err = service.BuyNow(ctx, "guest", "p42")
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Nil(t, session)
}

func TestBuyNow_SessionScopedToShopperAndProduct(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 3, Discount: 5}}
	service, _, _ := newTestService(t, stub)
	ctx := context.Background()

	_, err := service.ApplyBuyNow(ctx, "guest", "p42", "FLASH5", cartLine("p42", 30, 1))
	require.NoError(t, err)

	session, _, err := service.BuyNow(ctx, "guest", "other")
	require.NoError(t, err)
	assert.Nil(t, session)

	session, _, err = service.BuyNow(ctx, "ana@example.com", "p42")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestClearBuyNow_RemovesSession(t *testing.T) {
	stub := &evaluatorStub{status: http.StatusOK, response: discount.ApplyResponse{CouponID: 3, Discount: 5}}
	service, _, _ := newTestService(t, stub)
	ctx := context.Background()

	_, err := service.ApplyBuyNow(ctx, "guest", "p42", "FLASH5", cartLine("p42", 30, 1))
	require.NoError(t, err)

	require.NoError(t, service.ClearBuyNow(ctx, "guest", "p42"))

	session, expired, err := service.BuyNow(ctx, "guest", "p42")
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Nil(t, session)
}
