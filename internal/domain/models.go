package domain

import "strings"

// GuestShopperKey namespaces persisted state for shoppers that are not signed in.
const GuestShopperKey = "guest"

// ShopperKey normalizes an email into the identity used to partition persisted
// cart and coupon state. Empty input maps to the guest sentinel.
func ShopperKey(email string) string {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" {
		return GuestShopperKey
	}
	return key
}

// Product is a catalog product as served by the read API.
type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CategoryID     string          `json:"category_id"`
	Price          float64         `json:"price"`
	OriginalPrice  *float64        `json:"original_price,omitempty"`
	Image          string          `json:"image"`
	Images         []string        `json:"images,omitempty"`
	ImageItems     []ProductImage  `json:"image_items,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`
	Variants       []Variant       `json:"variants,omitempty"`
	InStock        bool            `json:"in_stock"`
}

// ProductImage carries the alt text used for variant-aware image ranking.
type ProductImage struct {
	URL      string `json:"url"`
	AltText  string `json:"alt_text,omitempty"`
	Position int    `json:"position"`
}

// Specification is one key/value row of the product specification table.
type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Variant is a concrete purchasable configuration of a product.
type Variant struct {
	ID              string            `json:"id"`
	SKU             string            `json:"sku"`
	Price           float64           `json:"price"`
	CompareAtPrice  *float64          `json:"compare_at_price,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	IsActive        bool              `json:"is_active"`
	AttributeValues map[string]string `json:"attribute_values"`
}

// AttributeValue returns the variant's value for a normalized attribute key.
func (v Variant) AttributeValue(normalizedKey string) string {
	for raw, value := range v.AttributeValues {
		if NormalizeAttributeKey(raw) == normalizedKey {
			return value
		}
	}
	return ""
}

// NormalizeAttributeKey makes attribute names comparable across variants and
// specification rows.
func NormalizeAttributeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// CartItem is one line of a shopper's cart. ID is productID alone or
// "productID:variantID" when a variant was chosen.
type CartItem struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"productId,omitempty"`
	VariantID     string   `json:"variantId,omitempty"`
	CategoryID    string   `json:"categoryId,omitempty"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
	Image         string   `json:"image"`
	Quantity      int      `json:"quantity"`
	SelectedSize  string   `json:"selectedSize,omitempty"`
	SelectedColor string   `json:"selectedColor,omitempty"`
}

// ResolveProductID recovers the product id for items persisted before the
// productId field existed, where only the composite id is available.
func (i CartItem) ResolveProductID() string {
	if i.ProductID != "" {
		return i.ProductID
	}
	if idx := strings.Index(i.ID, ":"); idx >= 0 {
		return i.ID[:idx]
	}
	return i.ID
}

// AppliedCoupon is the client-side cache of a remotely evaluated coupon.
// The discount is the raw amount returned by the evaluator; clamping against
// the live subtotal happens in the coupon service.
type AppliedCoupon struct {
	ID       int64   `json:"id"`
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
}

// BuyNowCoupon is a coupon session bound to one (shopper, product) pair with
// an absolute expiry. ExpiresAt is unix milliseconds, matching the persisted
// wire shape.
type BuyNowCoupon struct {
	Code      string  `json:"code"`
	Discount  float64 `json:"discount"`
	ExpiresAt int64   `json:"expires_at"`
}

// Coupon mirrors the evaluator's rule definition. The client never evaluates
// these itself; the type exists for listing available coupons to the shopper.
type Coupon struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	Type            CouponType      `json:"type"`
	Value           float64         `json:"value"`
	RestrictionType RestrictionType `json:"restriction_type"`
	RestrictionID   string          `json:"restriction_id,omitempty"`
	ExpiresAt       *string         `json:"expires_at,omitempty"`
	UsageLimit      *int            `json:"usage_limit,omitempty"`
	UsageCount      int             `json:"usage_count"`
	IsActive        bool            `json:"is_active"`
}
