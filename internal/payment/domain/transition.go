package domain

// allowedFrom lists, per target status, the statuses a payment may move from.
// Nothing ever moves back to created, and refunded is only reachable from paid.
var allowedFrom = map[Status][]Status{
	StatusPaid:     {StatusCreated, StatusFailed},
	StatusFailed:   {StatusCreated},
	StatusRefunded: {StatusPaid},
}

// SourcesFor returns the statuses from which a payment may move to target
func SourcesFor(target Status) []Status {
	src := allowedFrom[target]
	out := make([]Status, len(src))
	copy(out, src)
	return out
}

// CanTransition reports whether from -> to is a legal status change
func CanTransition(from, to Status) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// CaptureTransition marks the payment for orderID as paid
func CaptureTransition(orderID, paymentID string, meta []byte) Transition {
	return Transition{
		Key:       ByOrderID,
		Value:     orderID,
		From:      SourcesFor(StatusPaid),
		To:        StatusPaid,
		PaymentID: paymentID,
		Meta:      meta,
	}
}

// FailureTransition marks the payment for orderID as failed. A paid payment never matches.
func FailureTransition(orderID, paymentID string, meta []byte) Transition {
	return Transition{
		Key:       ByOrderID,
		Value:     orderID,
		From:      SourcesFor(StatusFailed),
		To:        StatusFailed,
		PaymentID: paymentID,
		Meta:      meta,
	}
}

// RefundTransition marks the paid payment with the gateway paymentID as refunded
func RefundTransition(paymentID string, meta []byte) Transition {
	return Transition{
		Key:   ByPaymentID,
		Value: paymentID,
		From:  SourcesFor(StatusRefunded),
		To:    StatusRefunded,
		Meta:  meta,
	}
}

// RefundFailureTransition keeps a paid payment paid and only records the gateway response
func RefundFailureTransition(paymentID string, meta []byte) Transition {
	return Transition{
		Key:   ByPaymentID,
		Value: paymentID,
		From:  []Status{StatusPaid},
		To:    StatusPaid,
		Meta:  meta,
	}
}
