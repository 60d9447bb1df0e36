package command

import (
	"context"

	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/ledger"
	"github.com/tair/verse-payments/internal/payment/metrics"
	"github.com/tair/verse-payments/internal/payment/webhook"
	"github.com/tair/verse-payments/pkg/logger"
)

// DeliveryStore remembers handled webhook deliveries
type DeliveryStore interface {
	Seen(ctx context.Context, deliveryID string) (bool, error)
	Remember(ctx context.Context, deliveryID string) error
}

// HandleWebhookCommand carries one webhook delivery. Body must be the exact bytes received.
type HandleWebhookCommand struct {
	Body       []byte
	Signature  string
	DeliveryID string
}

// Webhook outcomes
const (
	ResultApplied   = "applied"
	ResultUnchanged = "unchanged"
	ResultIgnored   = "ignored"
	ResultDuplicate = "duplicate"
)

// WebhookResult describes what a delivery did
type WebhookResult struct {
	Event  string
	Result string
}

// HandleWebhookHandler verifies and dispatches gateway webhooks
type HandleWebhookHandler struct {
	verifier   *webhook.Verifier
	ledger     *ledger.Ledger
	deliveries DeliveryStore
	metrics    *metrics.Metrics
}

// NewHandleWebhookHandler creates a webhook handler. deliveries may be nil.
func NewHandleWebhookHandler(verifier *webhook.Verifier, l *ledger.Ledger, deliveries DeliveryStore, m *metrics.Metrics) *HandleWebhookHandler {
	return &HandleWebhookHandler{verifier: verifier, ledger: l, deliveries: deliveries, metrics: m}
}

// Handle verifies the signature, then applies at most one ledger transition.
// The only errors are ErrInvalidSignature and storage failures.
func (h *HandleWebhookHandler) Handle(ctx context.Context, cmd HandleWebhookCommand) (*WebhookResult, error) {
	if err := h.verifier.Verify(cmd.Body, cmd.Signature); err != nil {
		logger.Warn(ctx).
			Str("delivery_id", cmd.DeliveryID).
			Int("body_bytes", len(cmd.Body)).
			Msg("Webhook signature mismatch, possible spoofing attempt")
		h.observe("unknown", "invalid_signature")
		return nil, domain.ErrInvalidSignature
	}

	if h.deliveries != nil {
		seen, err := h.deliveries.Seen(ctx, cmd.DeliveryID)
		if err != nil {
			logger.Warn(ctx).Err(err).Str("delivery_id", cmd.DeliveryID).Msg("Webhook dedup lookup failed")
		}
		if seen {
			h.observe("unknown", ResultDuplicate)
			return &WebhookResult{Result: ResultDuplicate}, nil
		}
	}

	event, err := webhook.ParseEvent(cmd.Body)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("delivery_id", cmd.DeliveryID).Msg("Ignoring unparseable webhook")
		h.observe("unparseable", ResultIgnored)
		return &WebhookResult{Result: ResultIgnored}, nil
	}

	result, err := h.dispatch(ctx, event)
	if err != nil {
		h.observe(event.Type(), "error")
		return nil, err
	}
	h.observe(event.Type(), result)

	if h.deliveries != nil {
		if err := h.deliveries.Remember(ctx, cmd.DeliveryID); err != nil {
			logger.Warn(ctx).Err(err).Str("delivery_id", cmd.DeliveryID).Msg("Failed to remember webhook delivery")
		}
	}

	return &WebhookResult{Event: event.Type(), Result: result}, nil
}

func (h *HandleWebhookHandler) dispatch(ctx context.Context, event webhook.Event) (string, error) {
	var (
		applied bool
		err     error
	)

	switch e := event.(type) {
	case webhook.PaymentCaptured:
		if e.Payment.OrderID == "" {
			return h.ignore(ctx, event, "payment has no order id"), nil
		}
		applied, err = h.ledger.MarkPaid(ctx, e.Payment.OrderID, e.Payment.ID, e.Payment.Raw, ledger.SourceWebhook)

	case webhook.OrderPaid:
		if e.Order.ID == "" {
			return h.ignore(ctx, event, "order has no id"), nil
		}
		var paymentID string
		meta := e.Order.Raw
		if e.Payment != nil {
			paymentID = e.Payment.ID
			meta = e.Payment.Raw
		}
		applied, err = h.ledger.MarkPaid(ctx, e.Order.ID, paymentID, meta, ledger.SourceWebhook)

	case webhook.PaymentFailed:
		if e.Payment.OrderID == "" {
			return h.ignore(ctx, event, "payment has no order id"), nil
		}
		applied, err = h.ledger.MarkFailed(ctx, e.Payment.OrderID, e.Payment.ID, e.Payment.Raw, ledger.SourceWebhook)

	case webhook.RefundProcessed:
		if e.Refund.PaymentID == "" {
			return h.ignore(ctx, event, "refund has no payment id"), nil
		}
		applied, err = h.ledger.MarkRefunded(ctx, e.Refund.PaymentID, e.Refund.Raw, ledger.SourceWebhook)

	case webhook.RefundFailed:
		if e.Refund.PaymentID == "" {
			return h.ignore(ctx, event, "refund has no payment id"), nil
		}
		applied, err = h.ledger.RecordRefundFailure(ctx, e.Refund.PaymentID, e.Refund.Raw, ledger.SourceWebhook)

	default:
		return h.ignore(ctx, event, "unhandled event type"), nil
	}

	if err != nil {
		return "", err
	}
	if applied {
		return ResultApplied, nil
	}
	return ResultUnchanged, nil
}

func (h *HandleWebhookHandler) ignore(ctx context.Context, event webhook.Event, reason string) string {
	logger.Info(ctx).
		Str("event_type", event.Type()).
		Str("reason", reason).
		Msg("Webhook event acknowledged and ignored")
	return ResultIgnored
}

func (h *HandleWebhookHandler) observe(event, result string) {
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(event, result).Inc()
	}
}
