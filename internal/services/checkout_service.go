package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
	"github.com/example/barbershop/internal/pricing"
)

// MaxNotesLength bounds customer notes and admin verification notes.
const MaxNotesLength = 500

var (
	ErrEmptyCart = apperr.Validation("cart_empty",
		"your cart is empty", "keranjang belanja kosong")
	ErrInvalidQuantity = apperr.Validation("invalid_quantity",
		"quantity must be at least 1", "jumlah minimal 1")
	ErrProductUnavailable = apperr.NotFound("product_unavailable",
		"product is not available", "produk tidak tersedia")
	ErrInsufficientStock = apperr.Validation("insufficient_stock",
		"not enough stock", "stok tidak mencukupi")
	ErrInvalidPaymentMethod = apperr.Validation("invalid_payment_method",
		"payment method must be cash or transfer", "metode pembayaran harus tunai atau transfer")
	ErrNotesTooLong = apperr.Validation("notes_too_long",
		"notes must be at most 500 characters", "catatan maksimal 500 karakter")
)

// CheckoutItem is an explicit product line for checkout or a price quote.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CheckoutRequest describes an order to place. When Items is empty the
// user's cart is checked out and cleared.
type CheckoutRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	VoucherCode   string               `json:"voucher_code"`
	Notes         string               `json:"notes"`
	Items         []CheckoutItem       `json:"items"`
}

// Quote is a priced selection of products.
type Quote struct {
	pricing.Breakdown
	Items   []models.OrderItem `json:"items"`
	Voucher *models.Voucher    `json:"voucher,omitempty"`
}

// CheckoutService turns carts into orders.
type CheckoutService struct {
	db       *gorm.DB
	notifier AdminNotifier
	log      *zap.Logger
	now      func() time.Time
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(db *gorm.DB, notifier AdminNotifier, log *zap.Logger) *CheckoutService {
	return &CheckoutService{
		db:       db,
		notifier: notifier,
		log:      log.Named("checkout"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Quote prices items (or the user's cart) with an optional voucher code
// without changing anything.
func (s *CheckoutService) Quote(ctx context.Context, userID uuid.UUID, items []CheckoutItem, voucherCode string) (*Quote, error) {
	lines, _, err := s.resolveItems(s.db.WithContext(ctx), userID, items)
	if err != nil {
		return nil, err
	}
	return s.price(s.db.WithContext(ctx), lines, voucherCode)
}

// Checkout places an order. The order insert, voucher usage, stock
// decrement and cart clearing commit together or not at all.
func (s *CheckoutService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*models.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, ErrNotesTooLong
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, fromCart, err := s.resolveItems(tx, userID, req.Items)
		if err != nil {
			return err
		}
		quote, err := s.price(tx, lines, req.VoucherCode)
		if err != nil {
			return err
		}

		now := s.now()
		order = models.Order{
			UserID:        userID,
			OrderNumber:   NewOrderNumber(now),
			Status:        orderstatus.PendingPayment,
			Items:         quote.Items,
			Subtotal:      quote.Subtotal,
			Discount:      quote.Discount,
			Tax:           quote.Tax,
			Total:         quote.Total,
			PaymentMethod: req.PaymentMethod,
			Notes:         notes,
		}
		if quote.Voucher != nil {
			order.VoucherID = &quote.Voucher.ID
			order.VoucherCode = quote.Voucher.Code
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, item := range quote.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", *item.ProductID, item.Quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return insufficientStock(item.ProductName)
			}
		}

		if quote.Voucher != nil {
			res := tx.Model(&models.Voucher{}).
				Where("id = ? AND (usage_limit IS NULL OR used_count < usage_limit)", quote.Voucher.ID).
				UpdateColumn("used_count", gorm.Expr("used_count + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &pricing.VoucherError{Reason: pricing.ReasonUsageExceeded, Code: quote.Voucher.Code}
			}
		}

		if fromCart {
			if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("user_id", userID.String()),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("voucher", order.VoucherCode),
	)

	s.announce(order)
	return &order, nil
}

func (s *CheckoutService) announce(order models.Order) {
	if s.notifier == nil {
		return
	}

	var customer models.User
	_ = s.db.Select("name", "phone").First(&customer, "id = ?", order.UserID).Error

	msg := OrderNotification{
		OrderNumber:   order.OrderNumber,
		CustomerName:  customer.Name,
		CustomerPhone: customer.Phone,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
	}
	for _, item := range order.Items {
		msg.Items = append(msg.Items, OrderItemNotification{
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	notifyAsync(s.log, "new_order", func(ctx context.Context) error {
		return s.notifier.NotifyNewOrder(ctx, msg)
	})
}

// resolveItems returns the requested lines merged by product, falling back to
// the cart. fromCart reports whether the cart was used.
func (s *CheckoutService) resolveItems(tx *gorm.DB, userID uuid.UUID, items []CheckoutItem) ([]CheckoutItem, bool, error) {
	fromCart := len(items) == 0
	if fromCart {
		var cart []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("created_at").Find(&cart).Error; err != nil {
			return nil, false, err
		}
		for _, c := range cart {
			items = append(items, CheckoutItem{ProductID: c.ProductID, Quantity: c.Quantity})
		}
	}
	if len(items) == 0 {
		return nil, false, ErrEmptyCart
	}

	merged := make([]CheckoutItem, 0, len(items))
	index := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, false, ErrInvalidQuantity
		}
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged, fromCart, nil
}

func (s *CheckoutService) price(tx *gorm.DB, lines []CheckoutItem, voucherCode string) (*Quote, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	var products []models.Product
	if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	quote := &Quote{}
	priced := make([]pricing.LineItem, 0, len(lines))
	for _, l := range lines {
		product, ok := byID[l.ProductID]
		if !ok || !product.IsActive {
			return nil, ErrProductUnavailable
		}
		if product.StockQuantity < l.Quantity {
			return nil, insufficientStock(product.Name)
		}

		productID := product.ID
		quote.Items = append(quote.Items, models.OrderItem{
			ProductID:   &productID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    l.Quantity,
			LineTotal:   product.Price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
		priced = append(priced, pricing.LineItem{UnitPrice: product.Price, Quantity: l.Quantity})
	}

	subtotal := pricing.Subtotal(priced)

	var terms *pricing.Voucher
	if code := pricing.NormalizeCode(voucherCode); code != "" {
		voucher, err := findVoucher(tx, code)
		if err != nil {
			return nil, err
		}
		if err := pricing.Validate(voucher.Terms(), subtotal, s.now()); err != nil {
			return nil, err
		}
		quote.Voucher = voucher
		terms = voucher.Terms()
	}

	quote.Breakdown = pricing.Calculate(priced, terms)
	return quote, nil
}

// findVoucher returns nil without error when no voucher has the code.
func findVoucher(tx *gorm.DB, code string) (*models.Voucher, error) {
	var voucher models.Voucher
	err := tx.Where("code = ?", pricing.NormalizeCode(code)).First(&voucher).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &voucher, nil
}

func insufficientStock(product string) *apperr.Error {
	return ErrInsufficientStock.WithMessage(
		fmt.Sprintf("not enough stock for %s", product),
		fmt.Sprintf("stok %s tidak mencukupi", product),
	)
}

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderNumber builds a human-friendly order number such as
// ORD-20250301142233-K7QM.
func NewOrderNumber(now time.Time) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	for i, b := range buf {
		buf[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return "ORD-" + now.Format("20060102150405") + "-" + string(buf)
}
