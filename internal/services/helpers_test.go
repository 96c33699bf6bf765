package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/barbershop/internal/database"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/pricing"
)

// fixedNow is the clock every service test runs on.
var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name), logger.Discard)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createUser(t testing.TB, db *gorm.DB, name string) models.User {
	t.Helper()
	u := models.User{Name: name, Phone: "+62" + uuid.NewString()[:8], Role: models.RoleCustomer}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createProduct(t testing.TB, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: dec(price), StockQuantity: stock, IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func createVoucher(t testing.TB, db *gorm.DB, v models.Voucher) models.Voucher {
	t.Helper()
	if v.DiscountType == "" {
		v.DiscountType = pricing.DiscountPercentage
	}
	require.NoError(t, db.Create(&v).Error)
	return v
}

func addToCart(t testing.TB, db *gorm.DB, user models.User, product models.Product, qty int) {
	t.Helper()
	require.NoError(t, db.Create(&models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: qty}).Error)
}

func createService(t testing.TB, db *gorm.DB, name string, minutes int, price string) models.Service {
	t.Helper()
	s := models.Service{Name: name, DurationMinutes: minutes, Price: dec(price), IsActive: true}
	require.NoError(t, db.Create(&s).Error)
	return s
}

func createBarber(t testing.TB, db *gorm.DB, name string) models.Barber {
	t.Helper()
	b := models.Barber{Name: name, IsActive: true}
	require.NoError(t, db.Create(&b).Error)
	return b
}

// recordingNotifier collects notifications delivered on background goroutines.
type recordingNotifier struct {
	mu        sync.Mutex
	orders    []OrderNotification
	proofs    []OrderNotification
	decisions []PaymentDecisionNotification
	bookings  []AppointmentNotification
}

func (r *recordingNotifier) NotifyNewOrder(_ context.Context, n OrderNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, n)
	return nil
}

func (r *recordingNotifier) NotifyPaymentProof(_ context.Context, n OrderNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proofs = append(r.proofs, n)
	return nil
}

func (r *recordingNotifier) NotifyPaymentDecision(_ context.Context, n PaymentDecisionNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, n)
	return nil
}

func (r *recordingNotifier) NotifyNewAppointment(_ context.Context, n AppointmentNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = append(r.bookings, n)
	return nil
}

func (r *recordingNotifier) count() (orders, proofs, decisions, bookings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders), len(r.proofs), len(r.decisions), len(r.bookings)
}

type stubUploader struct {
	url   string
	err   error
	calls int
}

func (s *stubUploader) Upload(_ context.Context, _ string, data []byte) (string, error) {
	s.calls++
	if _, err := CheckImage(data); err != nil {
		return "", err
	}
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}
