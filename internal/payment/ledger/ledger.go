package ledger

import (
	"context"
	"fmt"

	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/metrics"
	"github.com/tair/verse-payments/kafka"
	"github.com/tair/verse-payments/pkg/logger"
)

// StatusPublisher announces applied status changes to other services
type StatusPublisher interface {
	PublishStatusChanged(ctx context.Context, event kafka.PaymentStatusChangedEvent) error
}

// Source names who caused a transition
const (
	SourceWebhook   = "webhook"
	SourceRefund    = "refund"
	SourceReconcile = "reconcile"
)

// Ledger applies guarded status transitions to payment records. Every method is
// idempotent: a transition that no longer matches is reported as not applied.
type Ledger struct {
	repo      domain.PaymentRepository
	publisher StatusPublisher
	metrics   *metrics.Metrics
}

// New creates a ledger. publisher may be nil.
func New(repo domain.PaymentRepository, publisher StatusPublisher, m *metrics.Metrics) *Ledger {
	return &Ledger{repo: repo, publisher: publisher, metrics: m}
}

// MarkPaid moves the payment for orderID from created or failed to paid
func (l *Ledger) MarkPaid(ctx context.Context, orderID, paymentID string, meta []byte, source string) (bool, error) {
	return l.apply(ctx, domain.CaptureTransition(orderID, paymentID, meta), source)
}

// MarkFailed moves the payment for orderID from created to failed
func (l *Ledger) MarkFailed(ctx context.Context, orderID, paymentID string, meta []byte, source string) (bool, error) {
	return l.apply(ctx, domain.FailureTransition(orderID, paymentID, meta), source)
}

// MarkRefunded moves the payment with gateway paymentID from paid to refunded
func (l *Ledger) MarkRefunded(ctx context.Context, paymentID string, meta []byte, source string) (bool, error) {
	return l.apply(ctx, domain.RefundTransition(paymentID, meta), source)
}

// RecordRefundFailure stores the gateway response on a paid payment without changing its status
func (l *Ledger) RecordRefundFailure(ctx context.Context, paymentID string, meta []byte, source string) (bool, error) {
	return l.apply(ctx, domain.RefundFailureTransition(paymentID, meta), source)
}

func (l *Ledger) apply(ctx context.Context, t domain.Transition, source string) (bool, error) {
	applied, err := l.repo.ApplyTransition(ctx, t)
	if err != nil {
		l.observe(t.To, "error")
		logger.Error(ctx).
			Err(err).
			Str("match_key", string(t.Key)).
			Str("match_value", t.Value).
			Str("target_status", string(t.To)).
			Str("source", source).
			Msg("Ledger transition failed")
		return false, fmt.Errorf("failed to apply %s transition: %w", t.To, err)
	}

	if !applied {
		l.observe(t.To, "unchanged")
		logger.Debug(ctx).
			Str("match_key", string(t.Key)).
			Str("match_value", t.Value).
			Str("target_status", string(t.To)).
			Str("source", source).
			Msg("Ledger transition not applicable, ignoring")
		return false, nil
	}

	l.observe(t.To, "applied")
	logger.Info(ctx).
		Str("match_key", string(t.Key)).
		Str("match_value", t.Value).
		Str("status", string(t.To)).
		Str("source", source).
		Msg("Ledger transition applied")

	// A refund failure leaves the status untouched; there is nothing to announce.
	if t.To != domain.StatusPaid || t.Key == domain.ByOrderID {
		l.publish(ctx, t, source)
	}
	return true, nil
}

func (l *Ledger) publish(ctx context.Context, t domain.Transition, source string) {
	if l.publisher == nil {
		return
	}

	var (
		p   *domain.Payment
		err error
	)
	switch t.Key {
	case domain.ByOrderID:
		p, err = l.repo.FindByOrderID(ctx, t.Value)
	case domain.ByPaymentID:
		p, err = l.repo.FindByPaymentID(ctx, t.Value)
	}
	if err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("match_value", t.Value).
			Msg("Could not load payment for status event")
		return
	}

	event := kafka.PaymentStatusChangedEvent{
		PaymentID: p.ID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Purpose:   p.Purpose,
		Status:    string(t.To),
		Source:    source,
	}
	if p.OrderID != nil {
		event.OrderID = *p.OrderID
	}
	if p.PaymentID != nil {
		event.GatewayPaymentID = *p.PaymentID
	}
	if p.UserID != nil {
		event.UserID = *p.UserID
	}

	// Best effort: the ledger is already updated and is the source of truth.
	if err := l.publisher.PublishStatusChanged(ctx, event); err != nil {
		logger.Warn(ctx).
			Err(err).
			Str("payment_id", p.ID).
			Str("status", event.Status).
			Msg("Failed to publish payment status event")
	}
}

func (l *Ledger) observe(to domain.Status, outcome string) {
	if l.metrics != nil {
		l.metrics.Transitions.WithLabelValues(string(to), outcome).Inc()
	}
}
