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
	errNameRequired = apperr.Validation("name_required",
		"name is required", "nama wajib diisi")
	errNegativePrice = apperr.Validation("invalid_price",
		"price must not be negative", "harga tidak boleh negatif")
	errInvalidDuration = apperr.Validation("invalid_duration",
		"duration must be between 5 and 480 minutes", "durasi harus antara 5 dan 480 menit")
)

// CatalogHandler manages services and barbers.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

// ListServices returns active services, or all of them for the back-office.
func (h *CatalogHandler) ListServices(c *fiber.Ctx) error {
	var services []models.Service
	return h.listSimple(c, &services, isAdminPath(c), "name asc")
}

func (h *CatalogHandler) GetService(c *fiber.Ctx) error {
	var service models.Service
	return h.getSimple(c, &service)
}

func (h *CatalogHandler) CreateService(c *fiber.Ctx) error {
	var service models.Service
	return h.createSimple(c, &service, func() error { return validateService(&service) })
}

func (h *CatalogHandler) UpdateService(c *fiber.Ctx) error {
	var existing, input models.Service
	return h.updateSimple(c, &existing, &input, func() error { return validateService(&input) })
}

func (h *CatalogHandler) DeleteService(c *fiber.Ctx) error {
	return h.deleteSimple(c, &models.Service{})
}

// ListBarbers returns active barbers, or all of them for the back-office.
func (h *CatalogHandler) ListBarbers(c *fiber.Ctx) error {
	var barbers []models.Barber
	return h.listSimple(c, &barbers, isAdminPath(c), "name asc")
}

func (h *CatalogHandler) GetBarber(c *fiber.Ctx) error {
	var barber models.Barber
	return h.getSimple(c, &barber)
}

func (h *CatalogHandler) CreateBarber(c *fiber.Ctx) error {
	var barber models.Barber
	return h.createSimple(c, &barber, func() error { return validateBarber(&barber) })
}

func (h *CatalogHandler) UpdateBarber(c *fiber.Ctx) error {
	var existing, input models.Barber
	return h.updateSimple(c, &existing, &input, func() error { return validateBarber(&input) })
}

func (h *CatalogHandler) DeleteBarber(c *fiber.Ctx) error {
	return h.deleteSimple(c, &models.Barber{})
}

func validateService(s *models.Service) error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return errNameRequired
	}
	if s.Price.IsNegative() {
		return errNegativePrice
	}
	if s.DurationMinutes < 5 || s.DurationMinutes > 480 {
		return errInvalidDuration
	}
	return nil
}

func validateBarber(b *models.Barber) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" {
		return errNameRequired
	}
	return nil
}

func isAdminPath(c *fiber.Ctx) bool {
	return strings.Contains(c.Path(), "/admin/")
}

// Generic helpers for the simple back-office tables.

func (h *CatalogHandler) listSimple(c *fiber.Ctx, model interface{}, includeInactive bool, order string) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(model)
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}
	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order(order).
		Find(model).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": model, "pagination": pg.Meta(total)})
}

func (h *CatalogHandler) getSimple(c *fiber.Ctx, model interface{}) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.db.WithContext(c.UserContext()).First(model, "id = ?", id).Error; err != nil {
		return err
	}
	return ok(c, model)
}

func (h *CatalogHandler) createSimple(c *fiber.Ctx, model interface{}, validate func() error) error {
	if err := c.BodyParser(model); err != nil {
		return errInvalidBody
	}
	if err := validate(); err != nil {
		return err
	}
	if err := h.db.WithContext(c.UserContext()).Create(model).Error; err != nil {
		return err
	}
	return created(c, model)
}

// updateSimple replaces every column of existing with the decoded input
// except the identity and creation timestamp.
func (h *CatalogHandler) updateSimple(c *fiber.Ctx, existing, input interface{}, validate func() error) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	db := h.db.WithContext(c.UserContext())
	if err := db.First(existing, "id = ?", id).Error; err != nil {
		return err
	}
	if err := c.BodyParser(input); err != nil {
		return errInvalidBody
	}
	if err := validate(); err != nil {
		return err
	}
	if err := db.Model(existing).Select("*").Omit("id", "created_at").Updates(input).Error; err != nil {
		return err
	}
	if err := db.First(existing, "id = ?", id).Error; err != nil {
		return err
	}
	return ok(c, existing)
}

func (h *CatalogHandler) deleteSimple(c *fiber.Ctx, model interface{}) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	result := h.db.WithContext(c.UserContext()).Delete(model, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}
