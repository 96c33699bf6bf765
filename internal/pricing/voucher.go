package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/barbershop/internal/apperr"
)

// DiscountType selects how a voucher value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Voucher carries the terms of a discount code.
type Voucher struct {
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	MaxDiscount *decimal.Decimal
	Active      bool
	ExpiresAt   *time.Time
	UsageLimit  *int
	UsedCount   int
}

// NormalizeCode trims and upper-cases a voucher code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// VoucherReason names why a voucher cannot be applied.
type VoucherReason string

const (
	ReasonNotFound      VoucherReason = "not_found"
	ReasonInactive      VoucherReason = "inactive"
	ReasonExpired       VoucherReason = "expired"
	ReasonBelowMinimum  VoucherReason = "below_minimum"
	ReasonUsageExceeded VoucherReason = "usage_exceeded"
)

// VoucherError is returned by Validate.
type VoucherError struct {
	Reason      VoucherReason
	Code        string
	MinPurchase decimal.Decimal
}

func (e *VoucherError) Error() string {
	return e.AppError().Message["en"]
}

// AppError describes the failure for API clients.
func (e *VoucherError) AppError() *apperr.Error {
	code := "voucher_" + string(e.Reason)
	switch e.Reason {
	case ReasonNotFound:
		return apperr.NotFound(code, "voucher code not found", "kode voucher tidak ditemukan")
	case ReasonInactive:
		return apperr.Validation(code, "voucher is not active", "voucher tidak aktif")
	case ReasonExpired:
		return apperr.Validation(code, "voucher has expired", "voucher sudah kedaluwarsa")
	case ReasonBelowMinimum:
		amount := FormatPrice(e.MinPurchase)
		return apperr.Validation(code,
			fmt.Sprintf("minimum purchase of %s not reached", amount),
			fmt.Sprintf("minimal pembelian %s belum terpenuhi", amount))
	case ReasonUsageExceeded:
		return apperr.Validation(code, "voucher usage limit reached", "kuota voucher sudah habis")
	}
	return apperr.Validation(code, "voucher cannot be applied", "voucher tidak dapat digunakan")
}

// Validate checks whether v applies to a cart with the given subtotal at now.
// A nil voucher means the code lookup found nothing.
func Validate(v *Voucher, subtotal decimal.Decimal, now time.Time) error {
	if v == nil {
		return &VoucherError{Reason: ReasonNotFound}
	}
	if !v.Active {
		return &VoucherError{Reason: ReasonInactive, Code: v.Code}
	}
	if v.ExpiresAt != nil && now.After(*v.ExpiresAt) {
		return &VoucherError{Reason: ReasonExpired, Code: v.Code}
	}
	if subtotal.LessThan(v.MinPurchase) {
		return &VoucherError{Reason: ReasonBelowMinimum, Code: v.Code, MinPurchase: v.MinPurchase}
	}
	if v.UsageLimit != nil && v.UsedCount >= *v.UsageLimit {
		return &VoucherError{Reason: ReasonUsageExceeded, Code: v.Code}
	}
	return nil
}
