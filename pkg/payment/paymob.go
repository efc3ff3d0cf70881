// Package payment integrates with the Paymob Accept payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production Paymob Accept API endpoint.
const DefaultBaseURL = "https://accept.paymob.com/api"

// BillingProfile carries the payer details required by the payment key call.
type BillingProfile struct {
	FirstName string
	LastName  string
	Email     string
}

// Gateway abstracts the payment provider round trip: obtain an auth token,
// create an order, obtain a payment key, and build the hosted-payment URL.
type Gateway interface {
	AuthToken(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, authToken, merchantOrderID string, amountCents int64) (int64, error)
	PaymentKey(ctx context.Context, authToken string, orderID, amountCents int64, billing BillingProfile, extra map[string]string) (string, error)
	IframeURL(paymentKey string) string
}

// PaymobClient implements Gateway against the Paymob Accept API.
type PaymobClient struct {
	baseURL       string
	apiKey        string
	integrationID string
	iframeID      string
	httpClient    *http.Client
}

// NewPaymobClient constructs a gateway client. baseURL defaults to the
// production endpoint when empty.
func NewPaymobClient(baseURL, apiKey, integrationID, iframeID string) *PaymobClient {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &PaymobClient{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		integrationID: integrationID,
		iframeID:      iframeID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
}

// AuthToken exchanges the API key for a short-lived gateway token.
func (c *PaymobClient) AuthToken(ctx context.Context) (string, error) {
	payload := map[string]string{"api_key": c.apiKey}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, "/auth/tokens", payload, &resp); err != nil {
		return "", fmt.Errorf("gateway auth: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("gateway auth: empty token")
	}
	return resp.Token, nil
}

// CreateOrder registers an order and returns the gateway order id.
// merchantOrderID correlates the eventual webhook back to the originating
// user and product.
func (c *PaymobClient) CreateOrder(ctx context.Context, authToken, merchantOrderID string, amountCents int64) (int64, error) {
	payload := map[string]any{
		"auth_token":        authToken,
		"delivery_needed":   false,
		"amount_cents":      amountCents,
		"currency":          "EGP",
		"merchant_order_id": merchantOrderID,
		"items":             []any{},
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.doJSON(ctx, "/ecommerce/orders", payload, &resp); err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	return resp.ID, nil
}

// PaymentKey requests a payment key bound to the order.
func (c *PaymobClient) PaymentKey(ctx context.Context, authToken string, orderID, amountCents int64, billing BillingProfile, extra map[string]string) (string, error) {
	payload := map[string]any{
		"auth_token":   authToken,
		"amount_cents": amountCents,
		"expiration":   3600,
		"order_id":     orderID,
		"billing_data": map[string]string{
			"first_name":   billing.FirstName,
			"last_name":    billing.LastName,
			"email":        billing.Email,
			"phone_number": "01012345678",
			"city":         "Cairo",
			"country":      "EG",
		},
		"currency":       "EGP",
		"integration_id": c.integrationID,
		"extra":          extra,
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, "/acceptance/payment_keys", payload, &resp); err != nil {
		return "", fmt.Errorf("payment key: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("payment key: empty token")
	}
	return resp.Token, nil
}

// IframeURL builds the hosted payment page URL for a payment key.
func (c *PaymobClient) IframeURL(paymentKey string) string {
	return fmt.Sprintf("%s/acceptance/iframes/%s?payment_token=%s", c.baseURL, c.iframeID, paymentKey)
}

func (c *PaymobClient) doJSON(ctx context.Context, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
