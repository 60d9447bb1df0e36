package query

import (
	"context"
	"strings"

	"github.com/tair/verse-payments/internal/payment/domain"
)

// GetPaymentQuery represents the query to get a payment. Payments owned by another
// user are reported as not found unless the caller is an admin.
type GetPaymentQuery struct {
	ID       string
	CallerID string
	IsAdmin  bool
}

// GetPaymentHandler handles get payment query
type GetPaymentHandler struct {
	repo domain.PaymentRepository
}

// NewGetPaymentHandler creates a new get payment handler
func NewGetPaymentHandler(repo domain.PaymentRepository) *GetPaymentHandler {
	return &GetPaymentHandler{repo: repo}
}

// Handle executes the get payment query
func (h *GetPaymentHandler) Handle(ctx context.Context, query GetPaymentQuery) (*domain.Payment, error) {
	id := strings.TrimSpace(query.ID)
	if id == "" {
		return nil, domain.ErrNotFound
	}

	payment, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !query.IsAdmin && !payment.OwnedBy(query.CallerID) {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}
