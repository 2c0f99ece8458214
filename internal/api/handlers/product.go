package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/catalog"
	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/internal/pricing"
	"github.com/brunoshop/storefront/internal/variant"
	"github.com/brunoshop/storefront/pkg/errors"
)

// ResolveResponse is the full variant resolution for a product and selection:
// options per dimension, the healed selection, the resolved variant, ranked
// images, merged specifications, and a line-item descriptor ready for
// add-to-cart or buy-now.
type ResolveResponse struct {
	Attributes     []variant.AttributeMeta `json:"attributes"`
	Options        map[string][]string     `json:"options"`
	Selection      map[string]string       `json:"selection"`
	Variant        *domain.Variant         `json:"variant"`
	InStock        bool                    `json:"in_stock"`
	Images         []domain.ProductImage   `json:"images"`
	Specifications []domain.Specification  `json:"specifications"`
	CartItem       *domain.CartItem        `json:"cart_item"`
}

// HandleResolveVariant handles GET /v1/products/:id/resolve. Query params
// other than quantity are attribute selections; an empty selection is seeded
// from the first active variant.
func HandleResolveVariant(products *catalog.Client, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")

		product, err := products.Product(c.Request.Context(), productID)
		if err != nil {
			var notFound *errors.ErrNotFound
			if stderrors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			logger.Error("Failed to fetch product", zap.String("product", productID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "catalog unavailable"})
			return
		}

		quantity := 1
		selection := make(map[string]string)
		for key, values := range c.Request.URL.Query() {
			if len(values) == 0 {
				continue
			}
			if key == "quantity" {
				if parsed, err := strconv.Atoi(values[0]); err == nil && parsed > 0 {
					quantity = parsed
				}
				continue
			}
			selection[domain.NormalizeAttributeKey(key)] = values[0]
		}

		if len(selection) == 0 {
			selection = variant.SeedSelection(product.Variants)
		}

		resolution := variant.Resolve(product.Variants, selection)
		if healed, changed := variant.HealSelection(selection, resolution); changed {
			selection = healed
			resolution = variant.Resolve(product.Variants, selection)
		}

		images := variant.RankImages(imageItems(product), resolution.Variant)
		specifications := variant.MergeSpecifications(product.Specifications, resolution.Variant)

		c.JSON(http.StatusOK, ResolveResponse{
			Attributes:     resolution.Attributes,
			Options:        resolution.Options,
			Selection:      selection,
			Variant:        resolution.Variant,
			InStock:        inStock(product, resolution),
			Images:         images,
			Specifications: specifications,
			CartItem:       buildCartItem(product, resolution, selection, images, quantity),
		})
	}
}

// imageItems falls back to bare image URLs when the product carries no
// alt-texted image records.
func imageItems(product *domain.Product) []domain.ProductImage {
	if len(product.ImageItems) > 0 {
		return product.ImageItems
	}
	items := make([]domain.ProductImage, 0, len(product.Images))
	for i, url := range product.Images {
		items = append(items, domain.ProductImage{URL: url, Position: i})
	}
	return items
}

func inStock(product *domain.Product, resolution variant.Resolution) bool {
	if len(product.Variants) > 0 {
		return resolution.InStock
	}
	return product.InStock
}

// buildCartItem assembles the line-item descriptor for the resolved variant:
// composite id, variant pricing with compare-at fallback, first ranked image,
// and the color/size dimensions mapped onto the selected attributes.
func buildCartItem(product *domain.Product, resolution variant.Resolution, selection map[string]string, images []domain.ProductImage, quantity int) *domain.CartItem {
	resolved := resolution.Variant

	itemID := product.ID
	variantID := ""
	price := product.Price
	originalPrice := product.OriginalPrice
	if resolved != nil {
		itemID = product.ID + ":" + resolved.ID
		variantID = resolved.ID
		price = resolved.Price
		originalPrice = nil
		if resolved.CompareAtPrice != nil && *resolved.CompareAtPrice > resolved.Price {
			originalPrice = resolved.CompareAtPrice
		}
	}

	image := product.Image
	for _, candidate := range images {
		if candidate.URL != "" {
			image = candidate.URL
			break
		}
	}

	selectedSize := ""
	selectedColor := ""
	for _, attribute := range resolution.Attributes {
		value := selection[attribute.ID]
		if value == "" {
			continue
		}
		if variant.IsSizeAttribute(attribute.ID) && selectedSize == "" {
			selectedSize = value
		}
		if variant.IsColorAttribute(attribute.ID) && selectedColor == "" {
			selectedColor = variant.ParseColorValue(value).Label
		}
	}

	return &domain.CartItem{
		ID:            itemID,
		ProductID:     product.ID,
		VariantID:     variantID,
		CategoryID:    product.CategoryID,
		Name:          product.Name,
		Price:         pricing.Round2(price),
		OriginalPrice: originalPrice,
		Image:         image,
		Quantity:      quantity,
		SelectedSize:  selectedSize,
		SelectedColor: selectedColor,
	}
}
