package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/internal/payment/ledger"
	"github.com/tair/verse-payments/pkg/logger"
)

// RefundPaymentCommand refunds a payment by local id. A nil Amount refunds in full.
type RefundPaymentCommand struct {
	PaymentID string
	Amount    *decimal.Decimal
}

// RefundPaymentHandler handles refund payment command
type RefundPaymentHandler struct {
	repo    domain.PaymentRepository
	gateway Gateway
	ledger  *ledger.Ledger
}

// NewRefundPaymentHandler creates a new refund payment handler
func NewRefundPaymentHandler(repo domain.PaymentRepository, gateway Gateway, l *ledger.Ledger) *RefundPaymentHandler {
	return &RefundPaymentHandler{repo: repo, gateway: gateway, ledger: l}
}

// Handle checks the local state, asks the gateway to refund, and marks the payment
// refunded without waiting for the refund webhook.
func (h *RefundPaymentHandler) Handle(ctx context.Context, cmd RefundPaymentCommand) (*client.Refund, error) {
	id := strings.TrimSpace(cmd.PaymentID)
	if id == "" {
		return nil, domain.ErrMissingPaymentID
	}

	payment, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.Status == domain.StatusRefunded {
		return nil, domain.ErrAlreadyRefunded
	}
	if !payment.Refundable() {
		return nil, domain.ErrNotRefundable
	}

	var amount *int64
	if cmd.Amount != nil {
		minor, err := domain.ToMinorUnits(*cmd.Amount)
		if err != nil {
			return nil, domain.ErrInvalidRefundAmount
		}
		if minor <= 0 {
			return nil, domain.ErrInvalidAmount
		}
		if minor > payment.Amount {
			return nil, domain.ErrInvalidRefundAmount
		}
		amount = &minor
	}

	gatewayPaymentID := *payment.PaymentID
	refund, err := h.gateway.RefundPayment(ctx, gatewayPaymentID, amount)
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("payment_id", payment.ID).
			Str("gateway_payment_id", gatewayPaymentID).
			Msg("Gateway refund failed")
		return nil, gatewayError("refund payment", err)
	}

	applied, err := h.ledger.MarkRefunded(ctx, gatewayPaymentID, refund.Raw, ledger.SourceRefund)
	if err != nil {
		// The money has moved; the refund.processed webhook will retry the transition.
		logger.Error(ctx).
			Err(err).
			Str("payment_id", payment.ID).
			Str("gateway_payment_id", gatewayPaymentID).
			Str("refund_id", refund.ID).
			Msg("Refund issued but ledger update failed")
		return nil, fmt.Errorf("refund %s issued but not recorded: %w", refund.ID, err)
	}

	logger.Info(ctx).
		Str("payment_id", payment.ID).
		Str("gateway_payment_id", gatewayPaymentID).
		Str("refund_id", refund.ID).
		Int64("refund_amount", refund.Amount).
		Bool("applied", applied).
		Msg("Payment refunded")

	return refund, nil
}
