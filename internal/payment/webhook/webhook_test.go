package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/verse-payments/internal/payment/domain"
)

const capturedBody = `{"entity":"event","event":"payment.captured","contains":["payment"],"payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":49999,"currency":"INR","status":"captured"}}}}`

func TestVerifier(t *testing.T) {
	v := NewVerifier("whsec")
	body := []byte(capturedBody)
	sig := v.Sign(body)

	assert.NoError(t, v.Verify(body, sig))
	assert.ErrorIs(t, v.Verify(body, ""), domain.ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, "not-hex"), domain.ErrInvalidSignature)
	assert.ErrorIs(t, v.Verify(body, NewVerifier("other").Sign(body)), domain.ErrInvalidSignature)

	tampered := []byte(capturedBody + " ")
	assert.ErrorIs(t, v.Verify(tampered, sig), domain.ErrInvalidSignature, "signature covers the exact bytes")

	assert.ErrorIs(t, NewVerifier("").Verify(body, sig), domain.ErrInvalidSignature)
}

func TestParseEvent(t *testing.T) {
	t.Run("payment captured", func(t *testing.T) {
		event, err := ParseEvent([]byte(capturedBody))
		require.NoError(t, err)

		captured, ok := event.(PaymentCaptured)
		require.True(t, ok)
		assert.Equal(t, "pay_1", captured.Payment.ID)
		assert.Equal(t, "order_1", captured.Payment.OrderID)
		assert.JSONEq(t, `{"id":"pay_1","order_id":"order_1","amount":49999,"currency":"INR","status":"captured"}`, string(captured.Payment.Raw))
	})

	t.Run("order paid", func(t *testing.T) {
		body := `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_1","amount":100,"amount_paid":100,"status":"paid"}},"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)

		paid, ok := event.(OrderPaid)
		require.True(t, ok)
		assert.Equal(t, "order_1", paid.Order.ID)
		require.NotNil(t, paid.Payment)
		assert.Equal(t, "pay_1", paid.Payment.ID)
	})

	t.Run("payment failed", func(t *testing.T) {
		body := `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_1","status":"failed","error_code":"BAD_REQUEST_ERROR"}}}}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)

		failed, ok := event.(PaymentFailed)
		require.True(t, ok)
		assert.Equal(t, "BAD_REQUEST_ERROR", failed.Payment.ErrorCode)
	})

	t.Run("refund processed takes payment id from payment entity", func(t *testing.T) {
		body := `{"event":"refund.processed","payload":{"refund":{"entity":{"id":"rfnd_1","amount":100}},"payment":{"entity":{"id":"pay_1"}}}}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)

		refund, ok := event.(RefundProcessed)
		require.True(t, ok)
		assert.Equal(t, "pay_1", refund.Refund.PaymentID)
	})

	t.Run("refund failed", func(t *testing.T) {
		body := `{"event":"refund.failed","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","status":"failed"}}}}`
		event, err := ParseEvent([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, TypeRefundFailed, event.Type())
	})

	t.Run("unknown", func(t *testing.T) {
		event, err := ParseEvent([]byte(`{"event":"payment.authorized","payload":{}}`))
		require.NoError(t, err)
		assert.Equal(t, UnknownEvent{Name: "payment.authorized"}, event)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseEvent([]byte(`{not json`))
		assert.Error(t, err)
		_, err = ParseEvent([]byte(`{"payload":{}}`))
		assert.Error(t, err)
		_, err = ParseEvent([]byte(`{"event":"payment.captured","payload":{}}`))
		assert.Error(t, err)
	})
}

func TestDeliveryCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewDeliveryCache(client, time.Minute)
	ctx := context.Background()

	seen, err := cache.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, cache.Remember(ctx, "evt_1"))
	seen, err = cache.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	mr.FastForward(2 * time.Minute)
	seen, err = cache.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "entries expire")

	seen, err = cache.Seen(ctx, "")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestDeliveryCacheNil(t *testing.T) {
	var cache *DeliveryCache
	seen, err := cache.Seen(context.Background(), "evt_1")
	assert.NoError(t, err)
	assert.False(t, seen)
	assert.NoError(t, cache.Remember(context.Background(), "evt_1"))
}
