package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/pricing"
	"github.com/example/barbershop/internal/services"
)

// CartHandler manages the signed-in customer's cart.
type CartHandler struct {
	db *gorm.DB
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{db: db}
}

type cartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// GetCart lists cart lines with the current subtotal.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	items, err := h.items(c, userID)
	if err != nil {
		return err
	}

	lines := make([]pricing.LineItem, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		lines = append(lines, pricing.LineItem{UnitPrice: item.Product.Price, Quantity: item.Quantity})
	}

	return ok(c, fiber.Map{
		"items":    items,
		"subtotal": pricing.Subtotal(lines),
	})
}

// AddItem adds quantity of a product to the cart, merging with an existing line.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req cartRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		return services.ErrInvalidQuantity
	}

	db := h.db.WithContext(c.UserContext())
	if _, err := activeProduct(db, req.ProductID); err != nil {
		return err
	}

	item := models.CartItem{UserID: userID, ProductID: req.ProductID, Quantity: req.Quantity}
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", req.Quantity),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&item).Error; err != nil {
		return err
	}

	items, err := h.items(c, userID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": items})
}

// UpdateItem sets the quantity of one line. Zero removes it.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	productID, err := parseID(c, "productId")
	if err != nil {
		return err
	}

	var req cartRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}
	if req.Quantity < 0 {
		return services.ErrInvalidQuantity
	}

	db := h.db.WithContext(c.UserContext())
	scope := db.Where("user_id = ? AND product_id = ?", userID, productID)
	var result *gorm.DB
	if req.Quantity == 0 {
		result = scope.Delete(&models.CartItem{})
	} else {
		result = scope.Model(&models.CartItem{}).Update("quantity", req.Quantity)
	}
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}

	items, err := h.items(c, userID)
	if err != nil {
		return err
	}
	return ok(c, items)
}

// RemoveItem drops one product from the cart.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	productID, err := parseID(c, "productId")
	if err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearCart empties the cart.
func (h *CartHandler) ClearCart(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CartHandler) items(c *fiber.Ctx, userID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := h.db.WithContext(c.UserContext()).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&items).Error
	return items, err
}

func activeProduct(db *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := db.Where("is_active = ?", true).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrProductUnavailable
		}
		return nil, err
	}
	return &product, nil
}
