// Package orderstatus holds the product order lifecycle and its allowed
// transitions.
package orderstatus

import "fmt"

// Status is the lifecycle position of a product order.
type Status string

const (
	// PendingPayment is the initial state: awaiting admin payment verification.
	PendingPayment Status = "pending_payment"
	// Paid means an admin confirmed the payment.
	Paid Status = "paid"
	// PaymentRejected means the proof or payment was refused; the customer may re-submit.
	PaymentRejected Status = "payment_rejected"
	Processing      Status = "processing"
	ReadyForPickup  Status = "ready_for_pickup"
	Completed       Status = "completed"
	Cancelled       Status = "cancelled"
)

var all = []Status{PendingPayment, Paid, PaymentRejected, Processing, ReadyForPickup, Completed, Cancelled}

// transitions lists every allowed edge of the lifecycle.
var transitions = map[Status][]Status{
	PendingPayment:  {Paid, PaymentRejected, Cancelled},
	PaymentRejected: {PendingPayment, Cancelled},
	Paid:            {Processing, Cancelled},
	Processing:      {ReadyForPickup},
	ReadyForPickup:  {Completed},
}

// fulfillment is the forward-only chain after payment.
var fulfillment = map[Status]Status{
	Paid:           Processing,
	Processing:     ReadyForPickup,
	ReadyForPickup: Completed,
}

// All returns every status in lifecycle order.
func All() []Status {
	out := make([]Status, len(all))
	copy(out, all)
	return out
}

// Parse converts a raw value into a known status.
func Parse(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range all {
		if s == known {
			return true
		}
	}
	return false
}

// AwaitingVerification reports whether an admin may approve or reject the order.
func (s Status) AwaitingVerification() bool {
	return s == PendingPayment
}

// AcceptsProof reports whether a customer may upload a transfer receipt
// while the order is in s.
func (s Status) AcceptsProof() bool {
	return s == PendingPayment || CanTransition(s, PendingPayment)
}

// Cancellable reports whether the order may still be cancelled.
func (s Status) Cancellable() bool {
	return CanTransition(s, Cancelled)
}

func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextFulfillment returns the next fulfillment step after s.
func NextFulfillment(s Status) (Status, bool) {
	next, ok := fulfillment[s]
	return next, ok
}
