// Package orders submits order-creation and payment-initiation requests to
// the remote storefront backend. Both are opaque request/response pairs; this
// client owns no order state.
package orders

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
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an order submission client
func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// OrderItem is one line of the order-creation request
type OrderItem struct {
	ProductID   string  `json:"product_id"`
	VariantID   *string `json:"variant_id"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// CreateOrderRequest is the order-creation payload
type CreateOrderRequest struct {
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	ShippingAddress string      `json:"shipping_address"`
	ShippingRegion  string      `json:"shipping_region"`
	Items           []OrderItem `json:"items"`
	DiscountTotal   float64     `json:"discount_total"`
}

// CreatedOrder is the backend's record of a placed order
type CreatedOrder struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	Total       string `json:"total"`
}

// PaymentCustomer identifies the payer for payment initiation
type PaymentCustomer struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// CheckoutPaymentRequest is the payment-initiation payload
type CheckoutPaymentRequest struct {
	OrderID     int64           `json:"order_id"`
	Provider    string          `json:"provider"`
	Method      string          `json:"method"`
	Customer    PaymentCustomer `json:"customer"`
	CallbackURL string          `json:"callback_url"`
	ReturnURL   string          `json:"return_url"`
}

// Payment describes an initiated payment
type Payment struct {
	ID       int64  `json:"id"`
	Provider string `json:"provider"`
	Method   string `json:"method"`
	Status   string `json:"status"`
}

// CheckoutPaymentResponse is the payment API's response
type CheckoutPaymentResponse struct {
	Payment      Payment           `json:"payment"`
	Instructions map[string]string `json:"instructions"`
	PaymentURL   *string           `json:"payment_url"`
}

// CreateOrder places an order. Not cancellable mid-flight: it either
// completes or reports failure leaving prior state intact.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreatedOrder, error) {
	var order CreatedOrder
	if err := c.post(ctx, "/api/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// InitiatePayment starts payment processing for a created order.
func (c *Client) InitiatePayment(ctx context.Context, req CheckoutPaymentRequest) (*CheckoutPaymentResponse, error) {
	var payment CheckoutPaymentResponse
	if err := c.post(ctx, "/api/payments/checkout", req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CallbackURL returns the webhook URL the payment provider should notify.
func (c *Client) CallbackURL(provider string) string {
	return fmt.Sprintf("%s/api/payments/webhooks/%s", c.baseURL, provider)
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("Remote order API error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("order API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
