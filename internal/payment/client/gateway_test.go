package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/verse-payments/internal/payment/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *RazorpayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewRazorpayClient(Config{
		BaseURL:   srv.URL + "/v1/",
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		Timeout:   2 * time.Second,
	}, metrics.NewNoop())
}

func TestCreateOrder(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body CreateOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(49999), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "rcpt_abc", body.Receipt)
		assert.Equal(t, "donation", body.Notes["purpose"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"order_1","entity":"order","amount":49999,"amount_paid":0,"currency":"INR","receipt":"rcpt_abc","status":"created"}`)
	})

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Amount:   49999,
		Currency: "INR",
		Receipt:  "rcpt_abc",
		Notes:    map[string]string{"purpose": "donation"},
	})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(49999), order.Amount)
	assert.Contains(t, string(order.Raw), `"entity":"order"`)
}

func TestFetchPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/pay_1", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"pay_1","order_id":"order_1","amount":100,"currency":"INR","status":"captured","method":"upi"}`)
	})

	payment, err := client.FetchPayment(context.Background(), "pay_1")
	require.NoError(t, err)
	assert.Equal(t, "order_1", payment.OrderID)
	assert.Equal(t, PaymentStatusCaptured, payment.Status)
}

func TestRefundPayment(t *testing.T) {
	t.Run("partial", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments/pay_1/refund", r.URL.Path)
			var body map[string]int64
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(5000), body["amount"])
			_, _ = io.WriteString(w, `{"id":"rfnd_1","payment_id":"pay_1","amount":5000,"currency":"INR","status":"processed"}`)
		})

		amount := int64(5000)
		refund, err := client.RefundPayment(context.Background(), "pay_1", &amount)
		require.NoError(t, err)
		assert.Equal(t, "rfnd_1", refund.ID)
		assert.Equal(t, int64(5000), refund.Amount)
	})

	t.Run("full", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "amount")
			_, _ = io.WriteString(w, `{"id":"rfnd_2","payment_id":"pay_1","amount":49999,"status":"processed"}`)
		})

		refund, err := client.RefundPayment(context.Background(), "pay_1", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(49999), refund.Amount)
	})
}

func TestGatewayAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`)
	})

	_, err := client.CreateOrder(context.Background(), CreateOrderRequest{Amount: 1, Currency: "INR", Receipt: "r"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "BAD_REQUEST_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Description, "atleast")
}

func TestGatewayRejectionsDoNotTripBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"bad"}}`)
	})

	for i := 0; i < 8; i++ {
		_, _ = client.FetchPayment(context.Background(), "pay_x")
	}
	assert.Equal(t, 8, calls)
	assert.Equal(t, StateClosed, client.breaker.State())
}

func TestGatewayServerErrorsOpenBreaker(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := client.FetchPayment(context.Background(), "pay_x")
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Code)
	}

	_, err := client.FetchPayment(context.Background(), "pay_x")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 5, calls, "no call is made while open and nothing is retried")
}

func TestGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := NewRazorpayClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.FetchPayment(context.Background(), "pay_slow")
	assert.Error(t, err)
}
