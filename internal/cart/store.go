// Package cart holds the namespaced, validated, persisted cart for the
// current shopper identity. Every mutation commits in memory, persists, then
// notifies subscribed listeners.
package cart

import (
	"context"
	"encoding/json"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/internal/storage"
)

type Store struct {
	kv     storage.KV
	logger *zap.Logger

	// mu serializes mutations. Listeners fire after mu is released, so a
	// subscriber may call back into the store; listenersMu guards only the
	// listener list.
	mu          sync.Mutex
	listenersMu sync.Mutex
	listeners   []func(shopperKey string)
}

// NewStore creates a cart store over the given key-value backend
func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// Subscribe registers a listener invoked after every committed and persisted
// mutation of a shopper's cart.
func (s *Store) Subscribe(listener func(shopperKey string)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *Store) notify(shopperKey string) {
	s.listenersMu.Lock()
	listeners := make([]func(string), len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.Unlock()
	for _, listener := range listeners {
		listener(shopperKey)
	}
}

// Items loads the shopper's cart, migrating the legacy unnamespaced entry
// once if present. Corrupt payloads yield an empty cart, never an error;
// individual invalid records are dropped.
func (s *Store) Items(ctx context.Context, shopperKey string) ([]domain.CartItem, error) {
	if err := s.migrateLegacy(ctx, shopperKey); err != nil {
		return nil, err
	}

	raw, err := s.kv.Get(ctx, storage.CartItemsKey(shopperKey))
	if err == storage.ErrNotFound {
		return []domain.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeItems(raw, s.logger), nil
}

// migrateLegacy copies the pre-namespacing cart entry into the shopper
// partition when that partition is empty, then removes the legacy entry.
func (s *Store) migrateLegacy(ctx context.Context, shopperKey string) error {
	legacy, err := s.kv.Get(ctx, storage.LegacyCartItemsKey)
	if err == storage.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	targetKey := storage.CartItemsKey(shopperKey)
	if _, err := s.kv.Get(ctx, targetKey); err == nil {
		return nil
	} else if err != storage.ErrNotFound {
		return err
	}

	if err := s.kv.Set(ctx, targetKey, legacy); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, storage.LegacyCartItemsKey); err != nil {
		return err
	}
	s.logger.Info("Migrated legacy cart entry", zap.String("shopper", shopperKey))
	return nil
}

// AddItem merges by item id, summing quantities, otherwise appends preserving
// insertion order. Returns the committed cart.
func (s *Store) AddItem(ctx context.Context, shopperKey string, item domain.CartItem) ([]domain.CartItem, error) {
	items, err := s.addLocked(ctx, shopperKey, item)
	if err != nil {
		return nil, err
	}
	s.notify(shopperKey)
	return items, nil
}

func (s *Store) addLocked(ctx context.Context, shopperKey string, item domain.CartItem) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Items(ctx, shopperKey)
	if err != nil {
		return nil, err
	}

	merged := false
	for i := range items {
		if items[i].ID == item.ID {
			items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, item)
	}

	if err := s.persist(ctx, shopperKey, items); err != nil {
		return nil, err
	}
	return items, nil
}

// RemoveItem deletes the line with the given id. Removing an absent id is a
// no-op commit.
func (s *Store) RemoveItem(ctx context.Context, shopperKey, itemID string) ([]domain.CartItem, error) {
	next, err := s.removeLocked(ctx, shopperKey, itemID)
	if err != nil {
		return nil, err
	}
	s.notify(shopperKey)
	return next, nil
}

func (s *Store) removeLocked(ctx context.Context, shopperKey, itemID string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Items(ctx, shopperKey)
	if err != nil {
		return nil, err
	}

	next := items[:0]
	for _, item := range items {
		if item.ID != itemID {
			next = append(next, item)
		}
	}

	if err := s.persist(ctx, shopperKey, next); err != nil {
		return nil, err
	}
	return next, nil
}

// UpdateQuantity sets the line's quantity. A value of zero or less removes
// the line.
func (s *Store) UpdateQuantity(ctx context.Context, shopperKey, itemID string, quantity int) ([]domain.CartItem, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, shopperKey, itemID)
	}

	items, err := s.updateLocked(ctx, shopperKey, itemID, quantity)
	if err != nil {
		return nil, err
	}
	s.notify(shopperKey)
	return items, nil
}

func (s *Store) updateLocked(ctx context.Context, shopperKey, itemID string, quantity int) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.Items(ctx, shopperKey)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			break
		}
	}

	if err := s.persist(ctx, shopperKey, items); err != nil {
		return nil, err
	}
	return items, nil
}

// ClearCart empties the cart and removes any applied coupon; a coupon is
// never valid against an empty cart.
func (s *Store) ClearCart(ctx context.Context, shopperKey string) error {
	if err := s.clearLocked(ctx, shopperKey); err != nil {
		return err
	}
	s.notify(shopperKey)
	return nil
}

func (s *Store) clearLocked(ctx context.Context, shopperKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, storage.CartItemsKey(shopperKey)); err != nil {
		return err
	}
	return s.kv.Delete(ctx, storage.CartCouponKey(shopperKey))
}

// Coupon loads the shopper's applied cart coupon. Corrupt or missing entries
// read as no coupon.
func (s *Store) Coupon(ctx context.Context, shopperKey string) (*domain.AppliedCoupon, error) {
	raw, err := s.kv.Get(ctx, storage.CartCouponKey(shopperKey))
	if err == storage.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCoupon(raw), nil
}

// SetCoupon persists the applied coupon; nil removes it.
func (s *Store) SetCoupon(ctx context.Context, shopperKey string, coupon *domain.AppliedCoupon) error {
	key := storage.CartCouponKey(shopperKey)
	if coupon == nil {
		if err := s.kv.Delete(ctx, key); err != nil {
			return err
		}
		s.notify(shopperKey)
		return nil
	}

	raw, err := json.Marshal(coupon)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return err
	}
	s.notify(shopperKey)
	return nil
}

// RemoveCoupon clears the applied coupon unconditionally.
func (s *Store) RemoveCoupon(ctx context.Context, shopperKey string) error {
	return s.SetCoupon(ctx, shopperKey, nil)
}

type cartPayload struct {
	Items []json.RawMessage `json:"items"`
}

// persist writes the committed cart; an empty cart deletes the entry instead
// of writing an empty list.
func (s *Store) persist(ctx context.Context, shopperKey string, items []domain.CartItem) error {
	key := storage.CartItemsKey(shopperKey)
	if len(items) == 0 {
		return s.kv.Delete(ctx, key)
	}

	raw, err := json.Marshal(struct {
		Items []domain.CartItem `json:"items"`
	}{Items: items})
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, raw)
}

// storedCartItem tolerates loosely typed persisted records; quantity arrives
// as a float so fractional values can be floored instead of dropped.
type storedCartItem struct {
	ID            string   `json:"id"`
	ProductID     string   `json:"productId"`
	VariantID     string   `json:"variantId"`
	CategoryID    string   `json:"categoryId"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Image         string   `json:"image"`
	Quantity      float64  `json:"quantity"`
	SelectedSize  string   `json:"selectedSize"`
	SelectedColor string   `json:"selectedColor"`
}

func decodeItems(raw []byte, logger *zap.Logger) []domain.CartItem {
	var records []json.RawMessage
	var payload cartPayload
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Items != nil {
		records = payload.Items
	} else if err := json.Unmarshal(raw, &records); err != nil {
		logger.Warn("Dropping unparsable cart payload", zap.Error(err))
		return []domain.CartItem{}
	}

	items := make([]domain.CartItem, 0, len(records))
	for _, record := range records {
		var stored storedCartItem
		if err := json.Unmarshal(record, &stored); err != nil {
			continue
		}
		if item, ok := sanitizeItem(stored); ok {
			items = append(items, item)
		}
	}
	return items
}

// sanitizeItem enforces the stored-record invariants: non-empty id, name and
// image, finite price >= 0, finite quantity >= 1 floored to an integer.
func sanitizeItem(stored storedCartItem) (domain.CartItem, bool) {
	if stored.ID == "" || stored.Name == "" || stored.Image == "" {
		return domain.CartItem{}, false
	}
	if math.IsNaN(stored.Price) || math.IsInf(stored.Price, 0) || stored.Price < 0 {
		return domain.CartItem{}, false
	}
	if math.IsNaN(stored.Quantity) || math.IsInf(stored.Quantity, 0) || stored.Quantity < 1 {
		return domain.CartItem{}, false
	}

	quantity := int(math.Floor(stored.Quantity))
	if quantity < 1 {
		quantity = 1
	}

	return domain.CartItem{
		ID:            stored.ID,
		ProductID:     stored.ProductID,
		VariantID:     stored.VariantID,
		CategoryID:    stored.CategoryID,
		Name:          stored.Name,
		Price:         stored.Price,
		OriginalPrice: stored.OriginalPrice,
		Image:         stored.Image,
		Quantity:      quantity,
		SelectedSize:  stored.SelectedSize,
		SelectedColor: stored.SelectedColor,
	}, true
}

func decodeCoupon(raw []byte) *domain.AppliedCoupon {
	var stored struct {
		ID       *float64 `json:"id"`
		Code     string   `json:"code"`
		Discount *float64 `json:"discount"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil
	}
	if stored.Code == "" || stored.ID == nil || stored.Discount == nil {
		return nil
	}

	discount := *stored.Discount
	if discount < 0 {
		discount = 0
	}
	return &domain.AppliedCoupon{
		ID:       int64(*stored.ID),
		Code:     stored.Code,
		Discount: discount,
	}
}
