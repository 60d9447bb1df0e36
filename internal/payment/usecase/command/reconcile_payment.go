package command

import (
	"context"
	"strings"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/ledger"
	"github.com/tair/verse-payments/pkg/logger"
)

// ReconcilePaymentCommand re-reads a payment's state from the gateway
type ReconcilePaymentCommand struct {
	ID string
}

// ReconcileResult is the payment after reconciliation
type ReconcileResult struct {
	Payment *domain.Payment `json:"payment"`
	Changed bool            `json:"changed"`
}

// ReconcilePaymentHandler applies the gateway's view of a payment through the same
// guarded transitions the webhook uses, for deliveries that never arrived.
type ReconcilePaymentHandler struct {
	repo    domain.PaymentRepository
	gateway Gateway
	ledger  *ledger.Ledger
}

// NewReconcilePaymentHandler creates a new reconcile payment handler
func NewReconcilePaymentHandler(repo domain.PaymentRepository, gateway Gateway, l *ledger.Ledger) *ReconcilePaymentHandler {
	return &ReconcilePaymentHandler{repo: repo, gateway: gateway, ledger: l}
}

// Handle executes the reconcile payment command
func (h *ReconcilePaymentHandler) Handle(ctx context.Context, cmd ReconcilePaymentCommand) (*ReconcileResult, error) {
	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		return nil, domain.ErrMissingPaymentID
	}

	payment, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.PaymentID == nil || *payment.PaymentID == "" {
		return nil, domain.ErrNotReconcilable
	}

	remote, err := h.gateway.FetchPayment(ctx, *payment.PaymentID)
	if err != nil {
		return nil, gatewayError("fetch payment", err)
	}

	orderID := remote.OrderID
	if payment.OrderID != nil {
		orderID = *payment.OrderID
	}

	var changed bool
	switch remote.Status {
	case client.PaymentStatusCaptured:
		changed, err = h.ledger.MarkPaid(ctx, orderID, remote.ID, remote.Raw, ledger.SourceReconcile)
	case client.PaymentStatusFailed:
		changed, err = h.ledger.MarkFailed(ctx, orderID, remote.ID, remote.Raw, ledger.SourceReconcile)
	case client.PaymentStatusRefunded:
		changed, err = h.ledger.MarkRefunded(ctx, remote.ID, remote.Raw, ledger.SourceReconcile)
	}
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("payment_id", payment.ID).
		Str("gateway_payment_id", remote.ID).
		Str("gateway_status", remote.Status).
		Bool("changed", changed).
		Msg("Payment reconciled")

	if changed {
		if payment, err = h.repo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return &ReconcileResult{Payment: payment, Changed: changed}, nil
}
