// Package discount calls the remote discount evaluation API. Coupon rules are
// evaluated server-side; this client only carries the resolved amount back.
package discount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brunoshop/storefront/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a discount evaluation client
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// LineItem is one cart line in the evaluation request. CategoryID is null
// when the product has no category.
type LineItem struct {
	ProductID  string  `json:"product_id"`
	CategoryID *string `json:"category_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	LineTotal  float64 `json:"line_total"`
}

// ApplyRequest is the evaluation payload
type ApplyRequest struct {
	Code  string     `json:"code"`
	Items []LineItem `json:"items"`
}

// ApplyResponse is the evaluator's resolution of a coupon code
type ApplyResponse struct {
	CouponID int64   `json:"coupon_id"`
	Discount float64 `json:"discount"`
}

// Apply evaluates a coupon code against the given line breakdown. A rejected
// coupon or transport failure returns an error and no partial result.
func (c *Client) Apply(ctx context.Context, code string, items []LineItem) (*ApplyResponse, error) {
	url := fmt.Sprintf("%s/api/discounts/apply", c.baseURL)

	jsonData, err := json.Marshal(ApplyRequest{Code: code, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Discount evaluation rejected",
			zap.String("code", code),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("discount API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result ApplyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ListCoupons fetches the coupon catalog. Shopper-facing filtering (inactive,
// expired, usage-exhausted) happens in the coupon service.
func (c *Client) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	url := fmt.Sprintf("%s/api/discounts/coupons", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Coupon listing failed", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("discount API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var coupons []domain.Coupon
	if err := json.Unmarshal(body, &coupons); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return coupons, nil
}
