package domain

import (
	"context"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Status is the lifecycle state of a payment
type Status string

// Payment statuses
const (
	StatusCreated  Status = "created"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Payment is one payment attempt. Records are never deleted.
type Payment struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    *string        `json:"userId,omitempty" gorm:"index"`
	OrderID   *string        `json:"orderId,omitempty" gorm:"uniqueIndex"`
	PaymentID *string        `json:"paymentId,omitempty" gorm:"index"`
	Amount    int64          `json:"amount" gorm:"not null;check:amount > 0"`
	Currency  string         `json:"currency" gorm:"type:varchar(3);not null"`
	Purpose   string         `json:"purpose" gorm:"not null;index"`
	Status    Status         `json:"status" gorm:"type:varchar(16);not null;index"`
	Meta      datatypes.JSON `json:"meta,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// TableName specifies the table name
func (Payment) TableName() string {
	return "payments"
}

// Refundable reports whether the gateway can be asked to refund this payment
func (p *Payment) Refundable() bool {
	return CanTransition(p.Status, StatusRefunded) && p.PaymentID != nil && *p.PaymentID != ""
}

// OwnedBy reports whether the payment belongs to userID
func (p *Payment) OwnedBy(userID string) bool {
	return p.UserID != nil && *p.UserID == userID
}

// ReceiptFor derives the gateway receipt reference from a local payment id.
// The gateway caps receipts at 40 characters.
func ReceiptFor(id string) string {
	return "rcpt_" + strings.ReplaceAll(id, "-", "")
}

// LookupKey selects the column a transition is matched on
type LookupKey string

const (
	ByOrderID   LookupKey = "order_id"
	ByPaymentID LookupKey = "payment_id"
)

// Transition is a conditional status write: it applies only to the record whose Key
// column equals Value and whose current status is one of From.
type Transition struct {
	Key   LookupKey
	Value string
	From  []Status
	To    Status
	// PaymentID, when non-empty, is stored on the record together with the status.
	PaymentID string
	Meta      datatypes.JSON
}

// ListFilter narrows payment listings
type ListFilter struct {
	Status  Status
	Purpose string
	UserID  string
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

// PaymentRepository defines the contract for payment data access
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, id string) (*Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, int64, error)
	// AttachOrder stores the gateway order id on a record that has none yet.
	AttachOrder(ctx context.Context, id, orderID string, meta datatypes.JSON) error
	// ApplyTransition performs the conditional write. It reports false, with a nil
	// error, when no record matched the key and source statuses.
	ApplyTransition(ctx context.Context, t Transition) (bool, error)
	Ping(ctx context.Context) error
}
