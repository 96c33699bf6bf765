package orderstatus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationOnlyLeavesPendingPayment(t *testing.T) {
	for _, s := range All() {
		approve := CanTransition(s, Paid)
		reject := CanTransition(s, PaymentRejected)
		if s == PendingPayment {
			assert.True(t, approve)
			assert.True(t, reject)
			continue
		}
		assert.Falsef(t, approve, "%s -> paid should be refused", s)
		assert.Falsef(t, reject, "%s -> payment_rejected should be refused", s)
	}
}

func TestFulfillmentChain(t *testing.T) {
	s := Paid
	var visited []Status
	for {
		next, ok := NextFulfillment(s)
		if !ok {
			break
		}
		require.True(t, CanTransition(s, next))
		visited = append(visited, next)
		s = next
	}
	assert.Equal(t, []Status{Processing, ReadyForPickup, Completed}, visited)

	_, ok := NextFulfillment(PendingPayment)
	assert.False(t, ok)
}

func TestTerminalStatesHaveNoTargets(t *testing.T) {
	for _, s := range []Status{Completed, Cancelled} {
		for _, to := range All() {
			assert.Falsef(t, CanTransition(s, to), "%s -> %s", s, to)
		}
	}
}

func TestAwaitingVerification(t *testing.T) {
	for _, s := range All() {
		assert.Equal(t, s == PendingPayment, s.AwaitingVerification(), s)
	}
}

func TestAcceptsProof(t *testing.T) {
	assert.True(t, PendingPayment.AcceptsProof())
	assert.True(t, PaymentRejected.AcceptsProof())
	for _, s := range []Status{Paid, Processing, ReadyForPickup, Completed, Cancelled} {
		assert.False(t, s.AcceptsProof(), s)
	}
}

func TestCancellable(t *testing.T) {
	assert.True(t, PendingPayment.Cancellable())
	assert.True(t, PaymentRejected.Cancellable())
	assert.True(t, Paid.Cancellable())
	assert.False(t, Processing.Cancellable())
	assert.False(t, Completed.Cancellable())
	assert.False(t, Cancelled.Cancellable())
}

func TestRejectedOrderCanReturnToPending(t *testing.T) {
	assert.True(t, CanTransition(PaymentRejected, PendingPayment))
	assert.False(t, CanTransition(Paid, PendingPayment))
}

func TestParse(t *testing.T) {
	s, err := Parse("ready_for_pickup")
	require.NoError(t, err)
	assert.Equal(t, ReadyForPickup, s)

	_, err = Parse("shipped")
	assert.Error(t, err)
}
