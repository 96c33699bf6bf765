package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/barbershop/internal/apperr"
)

var now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func activeVoucher() *Voucher {
	return &Voucher{
		Code:        "SAVE10",
		Type:        DiscountPercentage,
		Value:       d("10"),
		MinPurchase: d("100000"),
		Active:      true,
	}
}

func reasonOf(t *testing.T, err error) VoucherReason {
	t.Helper()
	var ve *VoucherError
	require.True(t, errors.As(err, &ve), "expected VoucherError, got %v", err)
	return ve.Reason
}

func TestValidateAcceptsApplicableVoucher(t *testing.T) {
	assert.NoError(t, Validate(activeVoucher(), d("200000"), now))
}

func TestValidateNotFound(t *testing.T) {
	err := Validate(nil, d("200000"), now)
	assert.Equal(t, ReasonNotFound, reasonOf(t, err))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestValidateInactive(t *testing.T) {
	v := activeVoucher()
	v.Active = false
	assert.Equal(t, ReasonInactive, reasonOf(t, Validate(v, d("200000"), now)))
}

func TestValidateExpired(t *testing.T) {
	v := activeVoucher()
	past := now.Add(-time.Minute)
	v.ExpiresAt = &past
	assert.Equal(t, ReasonExpired, reasonOf(t, Validate(v, d("200000"), now)))

	future := now.Add(time.Hour)
	v.ExpiresAt = &future
	assert.NoError(t, Validate(v, d("200000"), now))
}

func TestValidateMinimumPurchaseBoundary(t *testing.T) {
	v := activeVoucher()

	err := Validate(v, d("50000"), now)
	assert.Equal(t, ReasonBelowMinimum, reasonOf(t, err))
	assert.Contains(t, err.Error(), "minimum purchase")
	assert.Contains(t, err.Error(), "Rp 100.000")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.Equal(t, ReasonBelowMinimum, reasonOf(t, Validate(v, d("99999.99"), now)))
	assert.NoError(t, Validate(v, d("100000"), now))
}

func TestValidateUsageLimitBoundary(t *testing.T) {
	v := activeVoucher()
	limit := 5
	v.UsageLimit = &limit

	v.UsedCount = 4
	assert.NoError(t, Validate(v, d("200000"), now))

	v.UsedCount = 5
	assert.Equal(t, ReasonUsageExceeded, reasonOf(t, Validate(v, d("200000"), now)))

	v.UsedCount = 9
	assert.Equal(t, ReasonUsageExceeded, reasonOf(t, Validate(v, d("200000"), now)))
}

func TestValidateChecksInOrder(t *testing.T) {
	v := activeVoucher()
	v.Active = false
	past := now.Add(-time.Hour)
	v.ExpiresAt = &past

	assert.Equal(t, ReasonInactive, reasonOf(t, Validate(v, d("1"), now)))
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
}
