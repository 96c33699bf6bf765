package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
)

var (
	ErrOrderCannotAdvance = apperr.Conflict("order_cannot_advance",
		"order cannot move to the next fulfillment step", "pesanan tidak dapat diproses ke tahap berikutnya")
	ErrOrderNotCancellable = apperr.Conflict("order_not_cancellable",
		"order can no longer be cancelled", "pesanan tidak dapat dibatalkan lagi")
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID *uuid.UUID
	Status orderstatus.Status
	Search string
	From   *time.Time
	To     *time.Time
}

// OrderService covers order queries, fulfillment and cancellation.
type OrderService struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(db *gorm.DB, log *zap.Logger) *OrderService {
	return &OrderService{
		db:  db,
		log: log.Named("orders"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// List returns one page of orders, newest first, and the total match count.
func (s *OrderService) List(ctx context.Context, filter OrderFilter, offset, limit int) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("orders.user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("orders.status = ?", filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToUpper(search) + "%"
		query = query.Where("UPPER(orders.order_number) LIKE ?", like)
	}
	if filter.From != nil {
		query = query.Where("orders.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("orders.created_at < ?", filter.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Preload("Items").
		Preload("User").
		Order("orders.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Get loads an order with its items. A non-nil userID restricts the lookup
// to that customer's orders.
func (s *OrderService) Get(ctx context.Context, orderID uuid.UUID, userID *uuid.UUID) (*models.Order, error) {
	query := s.db.WithContext(ctx).Preload("Items").Preload("User")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var order models.Order
	if err := query.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Advance moves a paid order one fulfillment step forward.
func (s *OrderService) Advance(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, nil)
	if err != nil {
		return nil, err
	}

	next, ok := orderstatus.NextFulfillment(order.Status)
	if !ok {
		return nil, ErrOrderCannotAdvance
	}

	updates := map[string]interface{}{"status": next}
	if next == orderstatus.Completed {
		updates["completed_at"] = s.now()
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrOrderCannotAdvance
	}

	s.log.Info("order advanced",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", order.Status.String()),
		zap.String("to", next.String()),
	)
	return s.Get(ctx, orderID, nil)
}

// Cancel cancels an order and puts its stock back. Customers pass their own
// ID and may only cancel orders that have not been paid; admins pass nil.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, customerID *uuid.UUID) (*models.Order, error) {
	order, err := s.Get(ctx, orderID, customerID)
	if err != nil {
		return nil, err
	}

	if !order.Status.Cancellable() {
		return nil, ErrOrderNotCancellable
	}
	if customerID != nil && order.Status == orderstatus.Paid {
		return nil, ErrOrderNotCancellable
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(map[string]interface{}{
				"status":       orderstatus.Cancelled,
				"cancelled_at": s.now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrOrderNotCancellable
		}

		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			err := tx.Model(&models.Product{}).
				Where("id = ?", *item.ProductID).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("order cancelled",
		zap.String("order_number", order.OrderNumber),
		zap.Bool("by_customer", customerID != nil),
	)
	return s.Get(ctx, orderID, nil)
}
