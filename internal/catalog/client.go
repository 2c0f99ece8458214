// Package catalog reads products from the remote catalog API. Read-only:
// stock and pricing truth stay on the server.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/brunoshop/storefront/internal/domain"
	"github.com/brunoshop/storefront/pkg/errors"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	sfg        singleflight.Group // Collapses concurrent fetches of the same product
}

// NewClient creates a catalog read client
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// productFetchTimeout bounds a shared product fetch independently of any
// single caller's context.
const productFetchTimeout = 15 * time.Second

// Product fetches one product by id. Concurrent fetches of the same id share
// one request. A caller whose context is cancelled stops waiting and gets the
// context error; the shared fetch runs to completion on its own timeout so
// the remaining waiters still get the result.
func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	ch := c.sfg.DoChan(id, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), productFetchTimeout)
		defer cancel()
		return c.fetchProduct(fetchCtx, id)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-ch:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*domain.Product), nil
	}
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	url := fmt.Sprintf("%s/api/products", c.baseURL)
	var products []domain.Product
	if err := c.getJSON(ctx, url, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Related returns up to four products in the same category, excluding the
// product itself.
func (c *Client) Related(ctx context.Context, product *domain.Product) ([]domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}

	related := make([]domain.Product, 0, 4)
	for _, candidate := range products {
		if candidate.ID == product.ID || candidate.CategoryID != product.CategoryID {
			continue
		}
		related = append(related, candidate)
		if len(related) == 4 {
			break
		}
	}
	return related, nil
}

func (c *Client) fetchProduct(ctx context.Context, id string) (*domain.Product, error) {
	url := fmt.Sprintf("%s/api/products/%s", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Catalog API error",
			zap.String("product", id),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("catalog API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var product domain.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &product, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Catalog API error",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("catalog API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
