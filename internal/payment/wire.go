//go:build wireinject
// +build wireinject

package payment

import (
	"github.com/google/wire"

	"github.com/tair/verse-payments/internal/payment/handler"
)

// InitializeHandler initializes payment handler with all dependencies
func InitializeHandler(infra Infrastructure, settings Settings) (*handler.PaymentHandler, error) {
	wire.Build(
		AllHandlersSet,
		handler.NewPaymentHandlerWithDI,
	)
	return nil, nil
}
