package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/pricing"
	"github.com/example/barbershop/internal/services"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		lang    string
		status  int
		code    string
		message string
	}{
		{
			name: "fiber error", err: fiber.NewError(fiber.StatusUnauthorized, "invalid token"),
			status: http.StatusUnauthorized, code: "unauthorized", message: "invalid token",
		},
		{
			name: "record not found", err: fmt.Errorf("load: %w", gorm.ErrRecordNotFound), lang: "en",
			status: http.StatusNotFound, code: "not_found", message: "resource not found",
		},
		{
			name: "duplicate key", err: gorm.ErrDuplicatedKey, lang: "id",
			status: http.StatusConflict, code: "duplicate", message: "data sudah ada",
		},
		{
			name: "service error", err: services.ErrOrderNotPending,
			status: http.StatusConflict, code: "order_not_pending",
		},
		{
			name: "voucher classifier", err: &pricing.VoucherError{Reason: pricing.ReasonExpired}, lang: "en",
			status: http.StatusBadRequest, code: "voucher_expired", message: "voucher has expired",
		},
		{
			name: "unknown", err: errors.New("boom"),
			status: http.StatusInternalServerError, code: "internal_error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, message := classify(tc.err, tc.lang)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
			if tc.message != "" {
				assert.Equal(t, tc.message, message)
			}
			assert.NotContains(t, message, "boom")
		})
	}
}
