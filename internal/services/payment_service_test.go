package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
)

func newPayment(t *testing.T) (*PaymentService, *gorm.DB, *stubUploader, *recordingNotifier) {
	db := newTestDB(t)
	uploader := &stubUploader{url: "https://cdn.example.com/proof.png"}
	notifier := &recordingNotifier{}
	svc := NewPaymentService(db, uploader, notifier, zap.NewNop())
	svc.now = clock
	return svc, db, uploader, notifier
}

func createOrder(t *testing.T, db *gorm.DB, user models.User, method models.PaymentMethod, status orderstatus.Status) models.Order {
	t.Helper()
	order := models.Order{
		UserID:        user.ID,
		OrderNumber:   NewOrderNumber(fixedNow),
		Status:        status,
		Subtotal:      dec("200000"),
		Discount:      dec("20000"),
		Tax:           dec("19800"),
		Total:         dec("199800"),
		PaymentMethod: method,
	}
	if method == models.PaymentTransfer {
		url := "https://cdn.example.com/original.png"
		order.PaymentProofURL = &url
		uploaded := fixedNow.Add(-time.Hour)
		order.PaymentProofUploadedAt = &uploaded
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestVerifyApproveSetsAudit(t *testing.T) {
	svc, db, _, notifier := newPayment(t)
	user := createUser(t, db, "Budi")
	order := createOrder(t, db, user, models.PaymentTransfer, orderstatus.PendingPayment)
	admin := uuid.New()

	got, err := svc.Verify(context.Background(), VerifyRequest{OrderID: order.ID, Decision: DecisionApprove, AdminID: admin})
	require.NoError(t, err)
	assert.Equal(t, orderstatus.Paid, got.Status)
	require.NotNil(t, got.VerifiedAt)
	assert.True(t, got.VerifiedAt.Equal(fixedNow))
	require.NotNil(t, got.VerifiedBy)
	assert.Equal(t, admin, *got.VerifiedBy)
	assert.Equal(t, "transfer payment confirmed", got.VerificationNotes)
	require.NotNil(t, got.PaymentProofURL)

	assert.Eventually(t, func() bool {
		_, _, decisions, _ := notifier.count()
		return decisions == 1
	}, time.Second, 10*time.Millisecond)
}

func TestVerifyApproveCashDefaultNotes(t *testing.T) {
	svc, db, _, _ := newPayment(t)
	order := createOrder(t, db, createUser(t, db, "Sari"), models.PaymentCash, orderstatus.PendingPayment)

	got, err := svc.Verify(context.Background(), VerifyRequest{OrderID: order.ID, Decision: DecisionApprove, AdminID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "cash payment confirmed", got.VerificationNotes)
}

func TestVerifyRejectTransferClearsProof(t *testing.T) {
	svc, db, _, _ := newPayment(t)
	order := createOrder(t, db, createUser(t, db, "Budi"), models.PaymentTransfer, orderstatus.PendingPayment)
	admin := uuid.New()

	got, err := svc.Verify(context.Background(), VerifyRequest{OrderID: order.ID, Decision: DecisionReject, Notes: "blurry proof", AdminID: admin})
	require.NoError(t, err)
	assert.Equal(t, orderstatus.PaymentRejected, got.Status)
	assert.Equal(t, "blurry proof", got.RejectionReason)
	assert.Nil(t, got.PaymentProofURL)
	assert.Nil(t, got.PaymentProofUploadedAt)
	require.NotNil(t, got.RejectedBy)
	assert.Equal(t, admin, *got.RejectedBy)
	require.NotNil(t, got.RejectedAt)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Nil(t, stored.PaymentProofURL)
	assert.Nil(t, stored.PaymentProofUploadedAt)
	assert.Equal(t, stored.Status, got.Status)
}

func TestVerifyRejectRules(t *testing.T) {
	svc, db, _, _ := newPayment(t)
	user := createUser(t, db, "Budi")
	transfer := createOrder(t, db, user, models.PaymentTransfer, orderstatus.PendingPayment)
	cash := createOrder(t, db, user, models.PaymentCash, orderstatus.PendingPayment)

	_, err := svc.Verify(context.Background(), VerifyRequest{OrderID: transfer.ID, Decision: DecisionReject, Notes: "  "})
	assert.ErrorIs(t, err, ErrRejectionReasonRequired)

	got, err := svc.Verify(context.Background(), VerifyRequest{OrderID: cash.ID, Decision: DecisionReject})
	require.NoError(t, err)
	assert.Equal(t, "cash payment not received", got.RejectionReason)

	_, err = svc.Verify(context.Background(), VerifyRequest{OrderID: transfer.ID, Decision: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidDecision)

	_, err = svc.Verify(context.Background(), VerifyRequest{OrderID: transfer.ID, Decision: DecisionApprove, Notes: strings.Repeat("n", 501)})
	assert.ErrorIs(t, err, ErrNotesTooLong)

	_, err = svc.Verify(context.Background(), VerifyRequest{OrderID: uuid.New(), Decision: DecisionApprove})
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestVerifySecondDecisionIsConflictAndNoOp(t *testing.T) {
	svc, db, _, _ := newPayment(t)
	order := createOrder(t, db, createUser(t, db, "Budi"), models.PaymentTransfer, orderstatus.PendingPayment)

	first, err := svc.Verify(context.Background(), VerifyRequest{OrderID: order.ID, Decision: DecisionApprove, AdminID: uuid.New()})
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), VerifyRequest{OrderID: order.ID, Decision: DecisionReject, Notes: "too late", AdminID: uuid.New()})
	assert.ErrorIs(t, err, ErrOrderNotPending)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, orderstatus.Paid, stored.Status)
	assert.Empty(t, stored.RejectionReason)
	assert.Nil(t, stored.RejectedAt)
	assert.Equal(t, *first.VerifiedBy, *stored.VerifiedBy)
}

func TestVerifyOnlyFromPendingPayment(t *testing.T) {
	svc, db, _, _ := newPayment(t)
	user := createUser(t, db, "Budi")

	for _, status := range []orderstatus.Status{
		orderstatus.Paid, orderstatus.PaymentRejected, orderstatus.Processing,
		orderstatus.ReadyForPickup, orderstatus.Completed, orderstatus.Cancelled,
	} {
		order := createOrder(t, db, user, models.PaymentCash, status)
		_, err := svc.Verify(context.Background(), VerifyRequest{OrderID: order.ID, Decision: DecisionApprove})
		assert.ErrorIs(t, err, ErrOrderNotPending, status)

		var stored models.Order
		require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
		assert.Equal(t, status, stored.Status)
	}
}

func TestSubmitPaymentProofResubmitsRejectedOrder(t *testing.T) {
	svc, db, uploader, notifier := newPayment(t)
	user := createUser(t, db, "Budi")
	order := createOrder(t, db, user, models.PaymentTransfer, orderstatus.PaymentRejected)

	got, err := svc.SubmitPaymentProof(context.Background(), user.ID, order.ID, "proof.png", pngHeader)
	require.NoError(t, err)
	assert.Equal(t, orderstatus.PendingPayment, got.Status)
	require.NotNil(t, got.PaymentProofURL)
	assert.Equal(t, "https://cdn.example.com/proof.png", *got.PaymentProofURL)
	assert.Equal(t, 1, uploader.calls)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, stored.Status, got.Status)
	require.NotNil(t, stored.PaymentProofUploadedAt)
	require.NotNil(t, got.PaymentProofUploadedAt)
	assert.True(t, stored.PaymentProofUploadedAt.Equal(*got.PaymentProofUploadedAt))

	assert.Eventually(t, func() bool {
		_, proofs, _, _ := notifier.count()
		return proofs == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitPaymentProofRules(t *testing.T) {
	svc, db, uploader, _ := newPayment(t)
	owner := createUser(t, db, "Budi")
	stranger := createUser(t, db, "Joko")

	cash := createOrder(t, db, owner, models.PaymentCash, orderstatus.PendingPayment)
	_, err := svc.SubmitPaymentProof(context.Background(), owner.ID, cash.ID, "proof.png", pngHeader)
	assert.ErrorIs(t, err, ErrProofNotRequired)

	paid := createOrder(t, db, owner, models.PaymentTransfer, orderstatus.Paid)
	_, err = svc.SubmitPaymentProof(context.Background(), owner.ID, paid.ID, "proof.png", pngHeader)
	assert.ErrorIs(t, err, ErrProofNotAccepted)

	pending := createOrder(t, db, owner, models.PaymentTransfer, orderstatus.PendingPayment)
	_, err = svc.SubmitPaymentProof(context.Background(), stranger.ID, pending.ID, "proof.png", pngHeader)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.SubmitPaymentProof(context.Background(), owner.ID, pending.ID, "notes.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrNotAnImage)
	assert.Equal(t, 1, uploader.calls)
}
