package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
	"github.com/example/barbershop/internal/pricing"
)

func newCheckout(t *testing.T) (*CheckoutService, *gorm.DB, *recordingNotifier) {
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	svc := NewCheckoutService(db, notifier, zap.NewNop())
	svc.now = clock
	return svc, db, notifier
}

func TestCheckoutFromCartWithVoucher(t *testing.T) {
	svc, db, notifier := newCheckout(t)
	user := createUser(t, db, "Budi")
	pomade := createProduct(t, db, "Pomade", "100000", 10)
	addToCart(t, db, user, pomade, 2)
	voucher := createVoucher(t, db, models.Voucher{Code: "save10", DiscountValue: dec("10"), IsActive: true})

	order, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{
		PaymentMethod: models.PaymentTransfer,
		VoucherCode:   " Save10 ",
		Notes:         "ambil sore",
	})
	require.NoError(t, err)

	assert.Equal(t, orderstatus.PendingPayment, order.Status)
	assert.Regexp(t, `^ORD-20250301100000-[A-Z2-9]{4}$`, order.OrderNumber)
	assert.True(t, dec("200000").Equal(order.Subtotal), order.Subtotal.String())
	assert.True(t, dec("20000").Equal(order.Discount), order.Discount.String())
	assert.True(t, dec("19800").Equal(order.Tax), order.Tax.String())
	assert.True(t, dec("199800").Equal(order.Total), order.Total.String())
	assert.Equal(t, "SAVE10", order.VoucherCode)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Pomade", order.Items[0].ProductName)
	assert.True(t, dec("200000").Equal(order.Items[0].LineTotal))

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", pomade.ID).Error)
	assert.Equal(t, 8, stored.StockQuantity)

	var v models.Voucher
	require.NoError(t, db.First(&v, "id = ?", voucher.ID).Error)
	assert.Equal(t, 1, v.UsedCount)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error)
	assert.Zero(t, cartCount)

	assert.Eventually(t, func() bool {
		orders, _, _, _ := notifier.count()
		return orders == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCheckoutBelowVoucherMinimumChangesNothing(t *testing.T) {
	svc, db, _ := newCheckout(t)
	user := createUser(t, db, "Sari")
	shampoo := createProduct(t, db, "Shampoo", "50000", 5)
	addToCart(t, db, user, shampoo, 1)
	createVoucher(t, db, models.Voucher{Code: "BIG", DiscountValue: dec("10"), MinPurchase: dec("100000"), IsActive: true})

	_, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: models.PaymentCash, VoucherCode: "BIG"})
	var verr *pricing.VoucherError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, pricing.ReasonBelowMinimum, verr.Reason)
	assert.Contains(t, apperr.From(err).Localized("en"), "minimum purchase")

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	quote, err := svc.Quote(context.Background(), user.ID, nil, "")
	require.NoError(t, err)
	assert.True(t, dec("55500").Equal(quote.Total), quote.Total.String())
}

func TestCheckoutRejectsExhaustedVoucher(t *testing.T) {
	svc, db, _ := newCheckout(t)
	user := createUser(t, db, "Andi")
	product := createProduct(t, db, "Comb", "25000", 5)
	addToCart(t, db, user, product, 1)
	limit := 3
	createVoucher(t, db, models.Voucher{Code: "ONCE", DiscountType: pricing.DiscountFixed, DiscountValue: dec("5000"), IsActive: true, UsageLimit: &limit, UsedCount: 3})

	_, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: models.PaymentCash, VoucherCode: "ONCE"})
	var verr *pricing.VoucherError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, pricing.ReasonUsageExceeded, verr.Reason)
}

func TestCheckoutUnknownVoucher(t *testing.T) {
	svc, db, _ := newCheckout(t)
	user := createUser(t, db, "Andi")
	product := createProduct(t, db, "Comb", "25000", 5)
	addToCart(t, db, user, product, 1)

	_, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: models.PaymentCash, VoucherCode: "NOPE"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCheckoutValidation(t *testing.T) {
	svc, db, _ := newCheckout(t)
	user := createUser(t, db, "Rudi")
	product := createProduct(t, db, "Wax", "75000", 1)

	_, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: "crypto"})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: models.PaymentCash, Notes: strings.Repeat("x", 501)})
	assert.ErrorIs(t, err, ErrNotesTooLong)

	_, err = svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: models.PaymentCash})
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.Checkout(context.Background(), user.ID, CheckoutRequest{
		PaymentMethod: models.PaymentCash,
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 2}},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, apperr.From(err).Localized("en"), "Wax")

	_, err = svc.Checkout(context.Background(), user.ID, CheckoutRequest{
		PaymentMethod: models.PaymentCash,
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 0}},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, db.Model(&product).Update("is_active", false).Error)
	_, err = svc.Checkout(context.Background(), user.ID, CheckoutRequest{
		PaymentMethod: models.PaymentCash,
		Items:         []CheckoutItem{{ProductID: product.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCheckoutExplicitItemsKeepCart(t *testing.T) {
	svc, db, _ := newCheckout(t)
	user := createUser(t, db, "Dewi")
	oil := createProduct(t, db, "Beard oil", "40000", 10)
	comb := createProduct(t, db, "Comb", "15000", 10)
	addToCart(t, db, user, comb, 1)

	order, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{
		PaymentMethod: models.PaymentCash,
		Items: []CheckoutItem{
			{ProductID: oil.ID, Quantity: 1},
			{ProductID: oil.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, dec("120000").Equal(order.Subtotal))

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", user.ID).Count(&cartCount).Error)
	assert.EqualValues(t, 1, cartCount)
}

func TestCheckoutRollsBackOnFailure(t *testing.T) {
	svc, db, _ := newCheckout(t)
	user := createUser(t, db, "Eko")
	pomade := createProduct(t, db, "Pomade", "100000", 4)
	addToCart(t, db, user, pomade, 1)
	voucher := createVoucher(t, db, models.Voucher{Code: "SAVE10", DiscountValue: dec("10"), IsActive: true})

	boom := errors.New("disk full")
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:fail_cart_clear", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Model.(*models.CartItem); ok {
			_ = tx.AddError(boom)
		}
	}))

	_, err := svc.Checkout(context.Background(), user.ID, CheckoutRequest{PaymentMethod: models.PaymentCash, VoucherCode: "SAVE10"})
	require.ErrorIs(t, err, boom)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	var stored models.Product
	require.NoError(t, db.First(&stored, "id = ?", pomade.ID).Error)
	assert.Equal(t, 4, stored.StockQuantity)

	var v models.Voucher
	require.NoError(t, db.First(&v, "id = ?", voucher.ID).Error)
	assert.Zero(t, v.UsedCount)
}

func TestNewOrderNumberIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		n := NewOrderNumber(fixedNow)
		assert.True(t, strings.HasPrefix(n, "ORD-20250301100000-"))
		seen[n] = true
	}
	assert.Greater(t, len(seen), 190)
}
