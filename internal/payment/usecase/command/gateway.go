package command

import (
	"context"
	"fmt"

	"github.com/tair/verse-payments/internal/payment/client"
	"github.com/tair/verse-payments/internal/payment/domain"
)

// Gateway is the subset of the payment provider the commands call
type Gateway interface {
	CreateOrder(ctx context.Context, req client.CreateOrderRequest) (*client.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*client.Payment, error)
	RefundPayment(ctx context.Context, paymentID string, amount *int64) (*client.Refund, error)
}

func gatewayError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrGateway, op, err)
}
