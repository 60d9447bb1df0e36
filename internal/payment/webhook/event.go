package webhook

import (
	"encoding/json"
	"fmt"
)

// Gateway event names
const (
	TypePaymentCaptured = "payment.captured"
	TypeOrderPaid       = "order.paid"
	TypePaymentFailed   = "payment.failed"
	TypeRefundProcessed = "refund.processed"
	TypeRefundFailed    = "refund.failed"
)

// Event is one of the known webhook events or UnknownEvent
type Event interface {
	// Type returns the gateway event name
	Type() string
	isEvent()
}

// PaymentEntity is the payment object inside an event payload
type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`

	Raw json.RawMessage `json:"-"`
}

// OrderEntity is the order object inside an event payload
type OrderEntity struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`

	Raw json.RawMessage `json:"-"`
}

// RefundEntity is the refund object inside an event payload
type RefundEntity struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"`

	Raw json.RawMessage `json:"-"`
}

// PaymentCaptured reports a captured payment, matched by order id
type PaymentCaptured struct{ Payment PaymentEntity }

// OrderPaid reports a fully paid order, matched by order id
type OrderPaid struct {
	Order   OrderEntity
	Payment *PaymentEntity
}

// PaymentFailed reports a failed attempt, matched by order id
type PaymentFailed struct{ Payment PaymentEntity }

// RefundProcessed reports a completed refund, matched by payment id
type RefundProcessed struct{ Refund RefundEntity }

// RefundFailed reports a refund the gateway could not complete, matched by payment id
type RefundFailed struct{ Refund RefundEntity }

// UnknownEvent is any event type this service does not handle
type UnknownEvent struct{ Name string }

func (PaymentCaptured) Type() string { return TypePaymentCaptured }
func (OrderPaid) Type() string       { return TypeOrderPaid }
func (PaymentFailed) Type() string   { return TypePaymentFailed }
func (RefundProcessed) Type() string { return TypeRefundProcessed }
func (RefundFailed) Type() string    { return TypeRefundFailed }
func (e UnknownEvent) Type() string  { return e.Name }

func (PaymentCaptured) isEvent() {}
func (OrderPaid) isEvent()       {}
func (PaymentFailed) isEvent()   {}
func (RefundProcessed) isEvent() {}
func (RefundFailed) isEvent()    {}
func (UnknownEvent) isEvent()    {}

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *entityWrapper `json:"payment"`
		Order   *entityWrapper `json:"order"`
		Refund  *entityWrapper `json:"refund"`
	} `json:"payload"`
}

type entityWrapper struct {
	Entity json.RawMessage `json:"entity"`
}

// ParseEvent decodes a verified webhook body. It must only be called after the
// signature has been checked.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("webhook body has no event name")
	}

	switch env.Event {
	case TypePaymentCaptured, TypePaymentFailed:
		var p PaymentEntity
		if err := decodeEntity(env.Payload.Payment, &p, &p.Raw); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Event, err)
		}
		if env.Event == TypePaymentCaptured {
			return PaymentCaptured{Payment: p}, nil
		}
		return PaymentFailed{Payment: p}, nil

	case TypeOrderPaid:
		var o OrderEntity
		if err := decodeEntity(env.Payload.Order, &o, &o.Raw); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Event, err)
		}
		event := OrderPaid{Order: o}
		if env.Payload.Payment != nil {
			var p PaymentEntity
			if err := decodeEntity(env.Payload.Payment, &p, &p.Raw); err == nil {
				event.Payment = &p
			}
		}
		return event, nil

	case TypeRefundProcessed, TypeRefundFailed:
		var r RefundEntity
		if err := decodeEntity(env.Payload.Refund, &r, &r.Raw); err != nil {
			return nil, fmt.Errorf("%s: %w", env.Event, err)
		}
		if r.PaymentID == "" && env.Payload.Payment != nil {
			var p PaymentEntity
			if err := decodeEntity(env.Payload.Payment, &p, &p.Raw); err == nil {
				r.PaymentID = p.ID
			}
		}
		if env.Event == TypeRefundProcessed {
			return RefundProcessed{Refund: r}, nil
		}
		return RefundFailed{Refund: r}, nil
	}

	return UnknownEvent{Name: env.Event}, nil
}

func decodeEntity(w *entityWrapper, out interface{}, raw *json.RawMessage) error {
	if w == nil || len(w.Entity) == 0 {
		return fmt.Errorf("payload entity missing")
	}
	if err := json.Unmarshal(w.Entity, out); err != nil {
		return fmt.Errorf("failed to decode payload entity: %w", err)
	}
	*raw = append(json.RawMessage(nil), w.Entity...)
	return nil
}
