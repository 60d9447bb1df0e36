package query

import (
	"context"
	"fmt"

	"github.com/tair/verse-payments/internal/payment/domain"
)

// GetMyPaymentsQuery represents the query to get user's own payments
type GetMyPaymentsQuery struct {
	UserID string
	Page   int
	Limit  int
}

// GetMyPaymentsHandler handles get my payments query
type GetMyPaymentsHandler struct {
	repo domain.PaymentRepository
}

// NewGetMyPaymentsHandler creates a new get my payments handler
func NewGetMyPaymentsHandler(repo domain.PaymentRepository) *GetMyPaymentsHandler {
	return &GetMyPaymentsHandler{repo: repo}
}

// Handle executes the get my payments query
func (h *GetMyPaymentsHandler) Handle(ctx context.Context, query GetMyPaymentsQuery) (*PaymentPage, error) {
	if query.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	page, limit := normalizePage(query.Page, query.Limit)
	return list(ctx, h.repo, domain.ListFilter{
		UserID: query.UserID,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}, page, limit)
}
