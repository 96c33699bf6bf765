package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
)

// Decision is an admin's verdict on a payment.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

const (
	defaultTransferApproval = "transfer payment confirmed"
	defaultCashApproval     = "cash payment confirmed"
	defaultCashRejection    = "cash payment not received"
)

var (
	ErrOrderNotFound = apperr.NotFound("order_not_found",
		"order not found", "pesanan tidak ditemukan")
	ErrOrderNotPending = apperr.Conflict("order_not_pending",
		"order is not waiting for payment verification", "pesanan tidak menunggu verifikasi pembayaran")
	ErrInvalidDecision = apperr.Validation("invalid_decision",
		"decision must be approve or reject", "keputusan harus approve atau reject")
	ErrRejectionReasonRequired = apperr.Validation("rejection_reason_required",
		"a reason is required to reject a transfer payment", "alasan penolakan transfer wajib diisi")
	ErrProofNotRequired = apperr.Validation("proof_not_required",
		"payment proof is only accepted for transfer orders", "bukti pembayaran hanya untuk pesanan transfer")
	ErrProofNotAccepted = apperr.Conflict("proof_not_accepted",
		"this order no longer accepts a payment proof", "pesanan ini tidak lagi menerima bukti pembayaran")
)

// VerifyRequest is an admin decision on a pending order.
type VerifyRequest struct {
	OrderID  uuid.UUID
	Decision Decision
	Notes    string
	AdminID  uuid.UUID
}

// PaymentService runs the manual payment verification workflow.
type PaymentService struct {
	db       *gorm.DB
	uploader MediaUploader
	notifier AdminNotifier
	log      *zap.Logger
	now      func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(db *gorm.DB, uploader MediaUploader, notifier AdminNotifier, log *zap.Logger) *PaymentService {
	return &PaymentService{
		db:       db,
		uploader: uploader,
		notifier: notifier,
		log:      log.Named("payment"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Verify approves or rejects the payment of a pending_payment order. The
// update is conditional on the status, so a repeated or concurrent decision
// changes nothing and reports ErrOrderNotPending.
func (s *PaymentService) Verify(ctx context.Context, req VerifyRequest) (*models.Order, error) {
	if req.Decision != DecisionApprove && req.Decision != DecisionReject {
		return nil, ErrInvalidDecision
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, ErrNotesTooLong
	}

	db := s.db.WithContext(ctx)

	var order models.Order
	if err := db.First(&order, "id = ?", req.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !order.Status.AwaitingVerification() {
		return nil, ErrOrderNotPending
	}

	now := s.now()
	updates := map[string]interface{}{}

	target := orderstatus.Paid
	if req.Decision == DecisionReject {
		target = orderstatus.PaymentRejected
	}
	if !orderstatus.CanTransition(order.Status, target) {
		return nil, ErrOrderNotPending
	}

	switch req.Decision {
	case DecisionApprove:
		if notes == "" {
			notes = defaultTransferApproval
			if order.PaymentMethod == models.PaymentCash {
				notes = defaultCashApproval
			}
		}
		updates["status"] = target
		updates["verified_at"] = now
		updates["verified_by"] = req.AdminID
		updates["verification_notes"] = notes

	case DecisionReject:
		if notes == "" {
			if order.PaymentMethod == models.PaymentTransfer {
				return nil, ErrRejectionReasonRequired
			}
			notes = defaultCashRejection
		}
		updates["status"] = target
		updates["rejected_at"] = now
		updates["rejected_by"] = req.AdminID
		updates["rejection_reason"] = notes
		if order.PaymentMethod == models.PaymentTransfer {
			updates["payment_proof_url"] = nil
			updates["payment_proof_uploaded_at"] = nil
		}
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderNotPending
	}

	var updated models.Order
	if err := db.Preload("Items").First(&updated, "id = ?", order.ID).Error; err != nil {
		return nil, err
	}

	s.log.Info("payment verified",
		zap.String("order_number", order.OrderNumber),
		zap.String("decision", string(req.Decision)),
		zap.String("admin_id", req.AdminID.String()),
	)

	if s.notifier != nil {
		msg := PaymentDecisionNotification{
			OrderNumber: order.OrderNumber,
			Decision:    req.Decision,
			Notes:       notes,
			Total:       order.Total,
		}
		notifyAsync(s.log, "payment_decision", func(ctx context.Context) error {
			return s.notifier.NotifyPaymentDecision(ctx, msg)
		})
	}

	return &updated, nil
}

// SubmitPaymentProof stores a transfer receipt for the customer's own order.
// A rejected order goes back to pending_payment for another review.
func (s *PaymentService) SubmitPaymentProof(ctx context.Context, userID, orderID uuid.UUID, filename string, data []byte) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	var order models.Order
	if err := db.First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.PaymentMethod != models.PaymentTransfer {
		return nil, ErrProofNotRequired
	}
	if !order.Status.AcceptsProof() {
		return nil, ErrProofNotAccepted
	}

	url, err := s.uploader.Upload(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(map[string]interface{}{
			"status":                    orderstatus.PendingPayment,
			"payment_proof_url":         url,
			"payment_proof_uploaded_at": s.now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrProofNotAccepted
	}

	var updated models.Order
	if err := db.Preload("Items").First(&updated, "id = ?", order.ID).Error; err != nil {
		return nil, err
	}

	s.log.Info("payment proof submitted", zap.String("order_number", order.OrderNumber))

	if s.notifier != nil {
		msg := OrderNotification{
			OrderNumber:   order.OrderNumber,
			Total:         order.Total,
			PaymentMethod: order.PaymentMethod,
			ProofURL:      url,
		}
		notifyAsync(s.log, "payment_proof", func(ctx context.Context) error {
			return s.notifier.NotifyPaymentProof(ctx, msg)
		})
	}

	return &updated, nil
}
