package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/domain"
	"github.com/tair/verse-payments/pkg/logger"
)

// CreateOrderCommand represents a payment request. UserID is nil for anonymous checkout.
type CreateOrderCommand struct {
	UserID  *string
	Amount  decimal.Decimal
	Purpose string
}

// CreateOrderResult is returned to the caller to open the gateway checkout
type CreateOrderResult struct {
	OrderID        string `json:"orderId"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	LocalPaymentID string `json:"localPaymentId"`
}

// CreateOrderHandler handles create order command
type CreateOrderHandler struct {
	repo     domain.PaymentRepository
	gateway  Gateway
	currency string
}

// NewCreateOrderHandler creates a new create order handler
func NewCreateOrderHandler(repo domain.PaymentRepository, gateway Gateway, currency string) *CreateOrderHandler {
	if currency == "" {
		currency = "INR"
	}
	return &CreateOrderHandler{repo: repo, gateway: gateway, currency: currency}
}

// Handle records the payment locally, then creates the gateway order. If the gateway
// call fails the local record stays in created without an order id.
func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	purpose := strings.TrimSpace(cmd.Purpose)
	if purpose == "" {
		return nil, domain.ErrMissingPurpose
	}

	amount, err := domain.ToMinorUnits(cmd.Amount)
	if err != nil || amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	payment := &domain.Payment{
		ID:       uuid.New().String(),
		UserID:   cmd.UserID,
		Amount:   amount,
		Currency: h.currency,
		Purpose:  purpose,
		Status:   domain.StatusCreated,
	}
	if err := h.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	order, err := h.gateway.CreateOrder(ctx, client.CreateOrderRequest{
		Amount:   amount,
		Currency: h.currency,
		Receipt:  domain.ReceiptFor(payment.ID),
		Notes: map[string]string{
			"local_payment_id": payment.ID,
			"purpose":          purpose,
		},
	})
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("payment_id", payment.ID).
			Int64("amount", amount).
			Msg("Gateway order creation failed, payment left without order")
		return nil, gatewayError("create order", err)
	}

	if err := h.repo.AttachOrder(ctx, payment.ID, order.ID, datatypes.JSON(order.Raw)); err != nil {
		logger.Error(ctx).
			Err(err).
			Str("payment_id", payment.ID).
			Str("order_id", order.ID).
			Msg("Failed to store gateway order id")
		return nil, fmt.Errorf("failed to attach order: %w", err)
	}

	logger.Info(ctx).
		Str("payment_id", payment.ID).
		Str("order_id", order.ID).
		Int64("amount", amount).
		Str("purpose", purpose).
		Msg("Payment order created")

	return &CreateOrderResult{
		OrderID:        order.ID,
		Amount:         amount,
		Currency:       h.currency,
		LocalPaymentID: payment.ID,
	}, nil
}
