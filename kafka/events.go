package kafka

import "time"

// PaymentStatusChangedEvent is published after a ledger transition was applied
type PaymentStatusChangedEvent struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	PaymentID        string    `json:"payment_id"`
	OrderID          string    `json:"order_id,omitempty"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	UserID           string    `json:"user_id,omitempty"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Purpose          string    `json:"purpose"`
	Status           string    `json:"status"`
	Source           string    `json:"source"`
	Timestamp        time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypePaymentStatusChanged = "payment.status_changed"
)

// Kafka topics
const (
	TopicPaymentStatusChanged = "payment-status-changed"
)
