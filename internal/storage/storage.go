// Package storage is the key-value persistence surface for per-shopper cart
// and coupon state. Keys are namespaced and versioned so that switching
// shopper identity swaps the entire visible partition.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no stored entry.
var ErrNotFound = errors.New("storage: key not found")

// KV is the minimal store contract. Writes replace the whole value; there is
// no partial update.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetTTL stores a value that the backend may discard after ttl. Callers
	// still enforce expiry on read.
	SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const (
	cartItemsPrefix    = "cart:items:v1:"
	cartCouponPrefix   = "cart:coupon:v1:"
	buyNowCouponPrefix = "product:buy-now-coupon:v1:"

	// LegacyCartItemsKey predates shopper namespacing. It is migrated into
	// the shopper partition once and then removed.
	LegacyCartItemsKey = "cart:items"
)

// CartItemsKey returns the storage key for a shopper's cart lines.
func CartItemsKey(shopperKey string) string {
	return cartItemsPrefix + shopperKey
}

// CartCouponKey returns the storage key for a shopper's applied cart coupon.
func CartCouponKey(shopperKey string) string {
	return cartCouponPrefix + shopperKey
}

// BuyNowCouponKey returns the storage key for a buy-now coupon session scoped
// to one shopper and product.
func BuyNowCouponKey(shopperKey, productID string) string {
	return buyNowCouponPrefix + shopperKey + ":" + productID
}
