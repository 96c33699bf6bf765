package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/pricing"
)

// Voucher is a discount code managed from the back-office.
type Voucher struct {
	BaseModel
	Code          string               `gorm:"size:32;uniqueIndex" json:"code"`
	Description   string               `json:"description"`
	DiscountType  pricing.DiscountType `gorm:"type:varchar(16)" json:"discount_type"`
	DiscountValue decimal.Decimal      `gorm:"type:numeric(14,2)" json:"discount_value"`
	MinPurchase   decimal.Decimal      `gorm:"type:numeric(14,2)" json:"min_purchase"`
	MaxDiscount   decimal.NullDecimal  `gorm:"type:numeric(14,2)" json:"max_discount"`
	IsActive      bool                 `json:"is_active"`
	ExpiresAt     *time.Time           `json:"expires_at"`
	UsageLimit    *int                 `json:"usage_limit"`
	UsedCount     int                  `json:"used_count"`
}

// BeforeSave keeps codes case-normalized.
func (v *Voucher) BeforeSave(tx *gorm.DB) error {
	v.Code = pricing.NormalizeCode(v.Code)
	return nil
}

// Terms converts the stored record into the pricing rule set.
func (v *Voucher) Terms() *pricing.Voucher {
	if v == nil {
		return nil
	}
	terms := &pricing.Voucher{
		Code:        v.Code,
		Type:        v.DiscountType,
		Value:       v.DiscountValue,
		MinPurchase: v.MinPurchase,
		Active:      v.IsActive,
		ExpiresAt:   v.ExpiresAt,
		UsageLimit:  v.UsageLimit,
		UsedCount:   v.UsedCount,
	}
	if v.MaxDiscount.Valid {
		maxDiscount := v.MaxDiscount.Decimal
		terms.MaxDiscount = &maxDiscount
	}
	return terms
}
