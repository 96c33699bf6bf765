package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/pricing"
	"github.com/example/barbershop/internal/services"
	"github.com/example/barbershop/internal/utils"
)

var (
	errVoucherCodeRequired = apperr.Validation("voucher_code_required",
		"voucher code is required", "kode voucher wajib diisi")
	errInvalidDiscountType = apperr.Validation("invalid_discount_type",
		"discount type must be percentage or fixed", "tipe diskon harus percentage atau fixed")
	errInvalidDiscountValue = apperr.Validation("invalid_discount_value",
		"discount value is out of range", "nilai diskon tidak valid")
	errInvalidUsageLimit = apperr.Validation("invalid_usage_limit",
		"usage limit must be positive", "batas pemakaian harus lebih dari nol")
)

var hundred = decimal.NewFromInt(100)

// VoucherHandler serves voucher previews and back-office voucher CRUD.
type VoucherHandler struct {
	db       *gorm.DB
	checkout *services.CheckoutService
}

// NewVoucherHandler constructs VoucherHandler.
func NewVoucherHandler(db *gorm.DB, checkout *services.CheckoutService) *VoucherHandler {
	return &VoucherHandler{db: db, checkout: checkout}
}

type validateVoucherRequest struct {
	Code  string                  `json:"code"`
	Items []services.CheckoutItem `json:"items"`
}

// ValidateVoucher prices the cart (or the given items) with a code. A code
// that does not apply is reported with its reason next to the price without it.
func (h *VoucherHandler) ValidateVoucher(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req validateVoucherRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}
	if strings.TrimSpace(req.Code) == "" {
		return errVoucherCodeRequired
	}

	ctx := c.UserContext()
	quote, err := h.checkout.Quote(ctx, userID, req.Items, req.Code)
	if err == nil {
		return ok(c, fiber.Map{"valid": true, "quote": quote})
	}

	var verr *pricing.VoucherError
	if !errors.As(err, &verr) {
		return err
	}

	plain, err := h.checkout.Quote(ctx, userID, req.Items, "")
	if err != nil {
		return err
	}

	reason := verr.AppError()
	return ok(c, fiber.Map{
		"valid":   false,
		"reason":  verr.Reason,
		"message": reason.Localized(c.Get(fiber.HeaderAcceptLanguage)),
		"quote":   plain,
	})
}

// ListVouchers returns every voucher, newest first.
func (h *VoucherHandler) ListVouchers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Voucher{})

	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var vouchers []models.Voucher
	if err := query.Order("created_at desc").Limit(pg.Limit).Offset(pg.Offset).
		Find(&vouchers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": vouchers, "pagination": pg.Meta(total)})
}

func (h *VoucherHandler) GetVoucher(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var voucher models.Voucher
	if err := h.db.WithContext(c.UserContext()).First(&voucher, "id = ?", id).Error; err != nil {
		return err
	}
	return ok(c, voucher)
}

func (h *VoucherHandler) CreateVoucher(c *fiber.Ctx) error {
	var voucher models.Voucher
	if err := c.BodyParser(&voucher); err != nil {
		return errInvalidBody
	}
	voucher.UsedCount = 0
	if err := validateVoucher(&voucher); err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Create(&voucher).Error; err != nil {
		return err
	}
	return created(c, voucher)
}

// UpdateVoucher edits the terms of a voucher. The usage counter is owned by
// checkout and cannot be changed here.
func (h *VoucherHandler) UpdateVoucher(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var voucher models.Voucher
	if err := db.First(&voucher, "id = ?", id).Error; err != nil {
		return err
	}

	var input models.Voucher
	if err := c.BodyParser(&input); err != nil {
		return errInvalidBody
	}
	if err := validateVoucher(&input); err != nil {
		return err
	}

	if err := db.Model(&voucher).Select("*").Omit("id", "created_at", "used_count").
		Updates(&input).Error; err != nil {
		return err
	}
	if err := db.First(&voucher, "id = ?", id).Error; err != nil {
		return err
	}
	return ok(c, voucher)
}

func (h *VoucherHandler) DeleteVoucher(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	result := h.db.WithContext(c.UserContext()).Delete(&models.Voucher{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func validateVoucher(v *models.Voucher) error {
	v.Code = pricing.NormalizeCode(v.Code)
	if v.Code == "" {
		return errVoucherCodeRequired
	}
	if v.DiscountType == "" {
		v.DiscountType = pricing.DiscountPercentage
	}
	if !v.DiscountType.Valid() {
		return errInvalidDiscountType
	}
	if !v.DiscountValue.IsPositive() {
		return errInvalidDiscountValue
	}
	if v.DiscountType == pricing.DiscountPercentage && v.DiscountValue.GreaterThan(hundred) {
		return errInvalidDiscountValue
	}
	if v.MinPurchase.IsNegative() {
		return errNegativePrice
	}
	if v.MaxDiscount.Valid && v.MaxDiscount.Decimal.IsNegative() {
		return errInvalidDiscountValue
	}
	if v.UsageLimit != nil && *v.UsageLimit <= 0 {
		return errInvalidUsageLimit
	}
	return nil
}
