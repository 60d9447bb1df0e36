package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tair/verse-payments/internal/payment/domain"
)

// GormPaymentRepository stores payments in a relational database through GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a GORM backed payment repository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// AutoMigrate creates or updates the payments table
func (r *GormPaymentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Payment{})
}

// Create inserts a new payment record
func (r *GormPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// FindByID retrieves a payment by local id
func (r *GormPaymentRepository) FindByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderID retrieves a payment by gateway order id
func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.findOne(ctx, "order_id = ?", orderID)
}

// FindByPaymentID retrieves a payment by gateway payment id
func (r *GormPaymentRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return r.findOne(ctx, "payment_id = ?", paymentID)
}

func (r *GormPaymentRepository) findOne(ctx context.Context, cond string, arg string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).Where(cond, arg).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

// List returns one page of payments matching filter, newest first, and the total match count
func (r *GormPaymentRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Payment{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Purpose != "" {
		q = q.Where("purpose = ?", filter.Purpose)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at <= ?", *filter.To)
	}

	// Count before paging
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	payments := []domain.Payment{}
	err := q.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, total, nil
}

// AttachOrder sets the gateway order id once; a record that already has one is left alone
func (r *GormPaymentRepository) AttachOrder(ctx context.Context, id, orderID string, meta datatypes.JSON) error {
	updates := map[string]interface{}{
		"order_id":   orderID,
		"updated_at": time.Now(),
	}
	if len(meta) > 0 {
		updates["meta"] = meta
	}

	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND order_id IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to attach order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing record from one that already has an order
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrOrderAttached
	}
	return nil
}

// ApplyTransition runs the guarded status update as a single conditional UPDATE
func (r *GormPaymentRepository) ApplyTransition(ctx context.Context, t domain.Transition) (bool, error) {
	column, err := lookupColumn(t.Key)
	if err != nil {
		return false, err
	}

	updates := map[string]interface{}{
		"status":     string(t.To),
		"updated_at": time.Now(),
	}
	if t.PaymentID != "" {
		updates["payment_id"] = t.PaymentID
	}
	if len(t.Meta) > 0 {
		updates["meta"] = t.Meta
	}

	// Zero rows affected means the record is missing or already moved on
	res := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where(column+" = ?", t.Value).
		Where("status IN ?", statusStrings(t.From)).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to apply transition to %s: %w", t.To, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Ping checks the database connection
func (r *GormPaymentRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func lookupColumn(key domain.LookupKey) (string, error) {
	switch key {
	case domain.ByOrderID, domain.ByPaymentID:
		return string(key), nil
	}
	return "", fmt.Errorf("unsupported lookup key %q", key)
}

func statusStrings(statuses []domain.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
