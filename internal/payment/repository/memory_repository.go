package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/tair/verse-payments/internal/payment/domain"
)

// MemoryPaymentRepository keeps payments in process memory. It is meant for local
// runs and tests; the conditional write semantics match the database stores.
type MemoryPaymentRepository struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment
}

// NewMemoryPaymentRepository creates an empty in-memory repository
func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{payments: make(map[string]*domain.Payment)}
}

func (r *MemoryPaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[payment.ID]; exists {
		return fmt.Errorf("failed to create payment: duplicate id %s", payment.ID)
	}
	if payment.OrderID != nil && r.findLocked(domain.ByOrderID, *payment.OrderID) != nil {
		return fmt.Errorf("failed to create payment: duplicate order id %s", *payment.OrderID)
	}

	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	r.payments[payment.ID] = clonePayment(payment)
	return nil
}

func (r *MemoryPaymentRepository) FindByID(_ context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *MemoryPaymentRepository) FindByOrderID(_ context.Context, orderID string) (*domain.Payment, error) {
	return r.find(domain.ByOrderID, orderID)
}

func (r *MemoryPaymentRepository) FindByPaymentID(_ context.Context, paymentID string) (*domain.Payment, error) {
	return r.find(domain.ByPaymentID, paymentID)
}

func (r *MemoryPaymentRepository) find(key domain.LookupKey, value string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(key, value)
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return clonePayment(p), nil
}

func (r *MemoryPaymentRepository) findLocked(key domain.LookupKey, value string) *domain.Payment {
	for _, p := range r.payments {
		var field *string
		switch key {
		case domain.ByOrderID:
			field = p.OrderID
		case domain.ByPaymentID:
			field = p.PaymentID
		}
		if field != nil && *field == value {
			return p
		}
	}
	return nil
}

func (r *MemoryPaymentRepository) List(_ context.Context, filter domain.ListFilter) ([]domain.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.Payment, 0)
	for _, p := range r.payments {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Purpose != "" && p.Purpose != filter.Purpose {
			continue
		}
		if filter.UserID != "" && !p.OwnedBy(filter.UserID) {
			continue
		}
		if filter.From != nil && p.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && p.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, *clonePayment(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (r *MemoryPaymentRepository) AttachOrder(_ context.Context, id, orderID string, meta datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.OrderID != nil {
		return domain.ErrOrderAttached
	}
	if r.findLocked(domain.ByOrderID, orderID) != nil {
		return fmt.Errorf("failed to attach order: duplicate order id %s", orderID)
	}

	p.OrderID = &orderID
	if len(meta) > 0 {
		p.Meta = append(datatypes.JSON(nil), meta...)
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryPaymentRepository) ApplyTransition(_ context.Context, t domain.Transition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.findLocked(t.Key, t.Value)
	if p == nil || !containsStatus(t.From, p.Status) {
		return false, nil
	}

	p.Status = t.To
	if t.PaymentID != "" {
		paymentID := t.PaymentID
		p.PaymentID = &paymentID
	}
	if len(t.Meta) > 0 {
		p.Meta = append(datatypes.JSON(nil), t.Meta...)
	}
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryPaymentRepository) Ping(context.Context) error {
	return nil
}

func containsStatus(statuses []domain.Status, s domain.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	c.UserID = cloneString(p.UserID)
	c.OrderID = cloneString(p.OrderID)
	c.PaymentID = cloneString(p.PaymentID)
	if p.Meta != nil {
		c.Meta = append(datatypes.JSON(nil), p.Meta...)
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
