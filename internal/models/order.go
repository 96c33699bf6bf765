package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/barbershop/internal/orderstatus"
)

// PaymentMethod is how the customer settles an order.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentTransfer
}

// Order is a product purchase. Amounts are snapshots taken at checkout and
// are never recomputed from live product prices.
type Order struct {
	BaseModel
	UserID        uuid.UUID          `gorm:"type:char(36);index" json:"user_id"`
	User          *User              `json:"user,omitempty"`
	OrderNumber   string             `gorm:"size:40;uniqueIndex" json:"order_number"`
	Status        orderstatus.Status `gorm:"type:varchar(32);index" json:"status"`
	Items         []OrderItem        `json:"items,omitempty"`
	Subtotal      decimal.Decimal    `gorm:"type:numeric(14,2)" json:"subtotal"`
	Discount      decimal.Decimal    `gorm:"type:numeric(14,2)" json:"discount"`
	Tax           decimal.Decimal    `gorm:"type:numeric(14,2)" json:"tax"`
	Total         decimal.Decimal    `gorm:"type:numeric(14,2)" json:"total"`
	VoucherID     *uuid.UUID         `gorm:"type:char(36)" json:"voucher_id"`
	VoucherCode   string             `gorm:"size:32" json:"voucher_code"`
	PaymentMethod PaymentMethod      `gorm:"type:varchar(16)" json:"payment_method"`
	Notes         string             `json:"notes"`

	PaymentProofURL        *string    `json:"payment_proof_url"`
	PaymentProofUploadedAt *time.Time `json:"payment_proof_uploaded_at"`

	VerifiedAt        *time.Time `json:"verified_at"`
	VerifiedBy        *uuid.UUID `gorm:"type:char(36)" json:"verified_by"`
	VerificationNotes string     `json:"verification_notes"`

	RejectedAt      *time.Time `json:"rejected_at"`
	RejectedBy      *uuid.UUID `gorm:"type:char(36)" json:"rejected_by"`
	RejectionReason string     `json:"rejection_reason"`

	CancelledAt *time.Time `json:"cancelled_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// OrderItem snapshots a product row at checkout.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:char(36);index" json:"order_id"`
	ProductID   *uuid.UUID      `gorm:"type:char(36)" json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2)" json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(14,2)" json:"line_total"`
}
