package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeCheckoutEndpoint = "https://api.stripe.com/v1/checkout/sessions"

// StripeClient 直接调用 Stripe Checkout 的 REST 接口（表单编码）。
type StripeClient struct {
	secretKey string
	endpoint  string
	http      *http.Client
}

// NewStripeClient 构造客户端，外部支付调用固定 15 秒超时。
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		secretKey: secretKey,
		endpoint:  stripeCheckoutEndpoint,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckoutSession 是创建收银台会话后的关键返回字段。
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	// Raw 保留网关的完整响应，落库审计用。
	Raw json.RawMessage `json:"-"`
}

// CreateCheckout 创建一次性支付会话并返回跳转地址。
func (c *StripeClient) CreateCheckout(ctx context.Context, amountCents int64, currency, productName, successURL, cancelURL string) (*CheckoutSession, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("stripe secret key is not configured")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", successURL)
	form.Set("cancel_url", cancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", productName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request checkout session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("checkout status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if session.URL == "" {
		return nil, fmt.Errorf("checkout response missing redirect url")
	}
	session.Raw = json.RawMessage(body)
	return &session, nil
}
