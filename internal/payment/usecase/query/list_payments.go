package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tair/verse-payments/internal/payment/domain"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// PaymentPage is the pagination envelope for payment listings
type PaymentPage struct {
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int64            `json:"total"`
	Items []domain.Payment `json:"items"`
}

// ListPaymentsQuery represents the query to list payments
type ListPaymentsQuery struct {
	Status  string
	Purpose string
	UserID  string
	From    *time.Time
	To      *time.Time
	Page    int
	Limit   int
}

// ListPaymentsHandler handles list payments query
type ListPaymentsHandler struct {
	repo domain.PaymentRepository
}

// NewListPaymentsHandler creates a new list payments handler
func NewListPaymentsHandler(repo domain.PaymentRepository) *ListPaymentsHandler {
	return &ListPaymentsHandler{repo: repo}
}

// Handle executes the list payments query
func (h *ListPaymentsHandler) Handle(ctx context.Context, query ListPaymentsQuery) (*PaymentPage, error) {
	status := domain.Status(query.Status)
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidStatus, query.Status)
	}

	page, limit := normalizePage(query.Page, query.Limit)
	filter := domain.ListFilter{
		Status:  status,
		Purpose: query.Purpose,
		UserID:  query.UserID,
		From:    query.From,
		To:      query.To,
		Limit:   limit,
		Offset:  (page - 1) * limit,
	}

	return list(ctx, h.repo, filter, page, limit)
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

func list(ctx context.Context, repo domain.PaymentRepository, filter domain.ListFilter, page, limit int) (*PaymentPage, error) {
	items, total, err := repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if items == nil {
		items = []domain.Payment{}
	}

	return &PaymentPage{
		Page:  page,
		Limit: limit,
		Total: total,
		Items: items,
	}, nil
}
