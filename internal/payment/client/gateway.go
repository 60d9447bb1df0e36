package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/verse-payments/internal/payment/metrics"
	"github.com/tair/verse-payments/pkg/logger"
)

// DefaultBaseURL is the Razorpay REST API root
const DefaultBaseURL = "https://api.razorpay.com/v1"

const maxResponseBytes = 1 << 20

// Config holds gateway credentials and limits
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// CreateOrderRequest is the body of a create-order call. Amount is in minor units.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the gateway order descriptor
type Order struct {
	ID         string          `json:"id"`
	Amount     int64           `json:"amount"`
	AmountPaid int64           `json:"amount_paid"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status"`
	Raw        json.RawMessage `json:"-"`
}

// Payment is the gateway payment descriptor
type Payment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Method           string          `json:"method"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
	Raw              json.RawMessage `json:"-"`
}

// Refund is the gateway refund descriptor
type Refund struct {
	ID        string          `json:"id"`
	PaymentID string          `json:"payment_id"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"-"`
}

// Gateway payment statuses reported by FetchPayment
const (
	PaymentStatusCaptured = "captured"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// APIError is an error response from the gateway
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d %s: %s", e.StatusCode, e.Code, e.Description)
}

// RazorpayClient calls the Razorpay REST API. It never retries: a retried
// create-order can produce a second order.
type RazorpayClient struct {
	cfg     Config
	http    *http.Client
	breaker *CircuitBreaker
	metrics *metrics.Metrics
}

// NewRazorpayClient creates a gateway client
func NewRazorpayClient(cfg Config, m *metrics.Metrics) *RazorpayClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &RazorpayClient{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: NewCircuitBreaker("razorpay", 5, 30*time.Second),
		metrics: m,
	}
}

// CreateOrder creates a gateway order
func (c *RazorpayClient) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	raw, err := c.do(ctx, "create_order", http.MethodPost, "/orders", req, &order)
	if err != nil {
		return nil, err
	}
	order.Raw = raw
	return &order, nil
}

// FetchPayment fetches a payment by gateway payment id
func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	raw, err := c.do(ctx, "fetch_payment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment)
	if err != nil {
		return nil, err
	}
	payment.Raw = raw
	return &payment, nil
}

// RefundPayment refunds a captured payment. A nil amount requests a full refund.
func (c *RazorpayClient) RefundPayment(ctx context.Context, paymentID string, amount *int64) (*Refund, error) {
	body := map[string]interface{}{}
	if amount != nil {
		body["amount"] = *amount
	}

	var refund Refund
	raw, err := c.do(ctx, "refund_payment", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/refund", body, &refund)
	if err != nil {
		return nil, err
	}
	refund.Raw = raw
	return &refund, nil
}

func (c *RazorpayClient) do(ctx context.Context, op, method, path string, in, out interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	var raw json.RawMessage
	err := c.breaker.Call(func() error {
		var err error
		raw, err = c.roundTrip(ctx, method, path, in)
		return err
	}, isProviderFailure)

	if c.metrics != nil {
		c.metrics.GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.GatewayFailures.WithLabelValues(op).Inc()
		}
	}
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("operation", op).
			Dur("duration", time.Since(start)).
			Msg("Gateway call failed")
		return nil, err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("failed to decode gateway %s response: %w", op, err)
	}
	return raw, nil
}

func (c *RazorpayClient) roundTrip(ctx context.Context, method, path string, in interface{}) (json.RawMessage, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode gateway request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, payload)
	}
	return payload, nil
}

func decodeAPIError(status int, payload []byte) *APIError {
	var envelope struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(payload, &envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Description = envelope.Error.Description
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(status)
	}
	return apiErr
}

// isProviderFailure reports whether err indicates the gateway itself is unhealthy.
// Rejected requests (4xx) do not count.
func isProviderFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
