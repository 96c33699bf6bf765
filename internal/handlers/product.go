package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/utils"
)

var (
	errNegativeStock = apperr.Validation("invalid_stock",
		"stock must not be negative", "stok tidak boleh negatif")
	errStockDelta = apperr.Validation("invalid_stock_delta",
		"stock change would make stock negative", "perubahan stok membuat stok negatif")
)

// ProductHandler manages the retail catalogue.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns paginated products with optional filters. Inactive
// products are only listed on back-office routes.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Product{})

	if !isAdminPath(c) {
		query = query.Where("is_active = ?", true)
	}

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", q, q)
	}

	if c.Query("low_stock") == "true" {
		query = query.Where("stock_quantity <= ?", 5)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"pagination": pg.Meta(total),
	})
}

// GetProduct loads a single product.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	query := h.db.WithContext(c.UserContext())
	if !isAdminPath(c) {
		query = query.Where("is_active = ?", true)
	}

	var product models.Product
	if err := query.First(&product, "id = ?", id).Error; err != nil {
		return err
	}

	return ok(c, product)
}

// CreateProduct adds a product.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return errInvalidBody
	}
	if err := validateProduct(&product); err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Create(&product).Error; err != nil {
		return err
	}

	return created(c, product)
}

// UpdateProduct replaces a product's editable fields.
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return err
	}

	var input models.Product
	if err := c.BodyParser(&input); err != nil {
		return errInvalidBody
	}
	if err := validateProduct(&input); err != nil {
		return err
	}

	if err := db.Model(&product).Select("*").Omit("id", "created_at").Updates(&input).Error; err != nil {
		return err
	}
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return err
	}

	return ok(c, product)
}

type stockRequest struct {
	Delta int `json:"delta"`
}

// AdjustStock adds delta to the stock level without letting it drop below zero.
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req stockRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	db := h.db.WithContext(c.UserContext())
	result := db.Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, req.Delta).
		UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", req.Delta))
	if result.Error != nil {
		return result.Error
	}

	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		return err
	}
	if result.RowsAffected == 0 {
		return errStockDelta
	}

	return ok(c, product)
}

// DeleteProduct removes a product and drops it from every cart. Order
// items keep their snapshot.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	err = h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Product{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if p.Name == "" {
		return errNameRequired
	}
	if p.Price.IsNegative() || p.CostPrice.IsNegative() {
		return errNegativePrice
	}
	if p.StockQuantity < 0 {
		return errNegativeStock
	}
	return nil
}
