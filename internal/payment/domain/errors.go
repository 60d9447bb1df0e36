package domain

import "errors"

// Validation errors
var (
	ErrInvalidAmount       = errors.New("amount must be greater than 0")
	ErrMissingPurpose      = errors.New("purpose is required")
	ErrMissingPaymentID    = errors.New("paymentId is required")
	ErrInvalidRefundAmount = errors.New("refund amount exceeds payment amount")
	ErrInvalidStatus       = errors.New("invalid status")
)

// Lookup and state conflict errors
var (
	ErrNotFound        = errors.New("payment not found")
	ErrAlreadyRefunded = errors.New("payment already refunded")
	ErrNotRefundable   = errors.New("payment is not refundable")
	ErrOrderAttached   = errors.New("payment already has a gateway order")
	ErrNotReconcilable = errors.New("payment has no gateway payment to reconcile")
)

// ErrInvalidSignature is returned when a webhook signature does not match the body
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrGateway wraps every failure reported by, or while reaching, the payment gateway
var ErrGateway = errors.New("payment gateway request failed")
