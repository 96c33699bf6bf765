package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/utils"
)

var (
	errCategoryRequired = apperr.Validation("category_required",
		"expense category is required", "kategori pengeluaran wajib diisi")
	errInvalidAmount = apperr.Validation("invalid_amount",
		"amount must be greater than zero", "jumlah harus lebih dari nol")
)

// ExpenseHandler manages back-office expenses.
type ExpenseHandler struct {
	db       *gorm.DB
	location *time.Location
}

// NewExpenseHandler constructs ExpenseHandler.
func NewExpenseHandler(db *gorm.DB, loc *time.Location) *ExpenseHandler {
	return &ExpenseHandler{db: db, location: loc}
}

// ListExpenses returns expenses, newest first, optionally within a date range.
func (h *ExpenseHandler) ListExpenses(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Expense{})

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := parseDateRange(c, h.location, 30)
		if err != nil {
			return err
		}
		query = query.Where("spent_at >= ? AND spent_at < ?", from, to)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var expenses []models.Expense
	if err := query.Order("spent_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&expenses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": expenses, "pagination": pg.Meta(total)})
}

// CreateExpense records a cost against the signed-in admin.
func (h *ExpenseHandler) CreateExpense(c *fiber.Ctx) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var expense models.Expense
	if err := c.BodyParser(&expense); err != nil {
		return errInvalidBody
	}
	if err := validateExpense(&expense); err != nil {
		return err
	}
	expense.RecordedBy = adminID

	if err := h.db.WithContext(c.UserContext()).Create(&expense).Error; err != nil {
		return err
	}
	return created(c, expense)
}

func (h *ExpenseHandler) UpdateExpense(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var expense models.Expense
	if err := db.First(&expense, "id = ?", id).Error; err != nil {
		return err
	}

	var input models.Expense
	if err := c.BodyParser(&input); err != nil {
		return errInvalidBody
	}
	if err := validateExpense(&input); err != nil {
		return err
	}

	if err := db.Model(&expense).
		Select("category", "description", "amount", "spent_at").
		Updates(&input).Error; err != nil {
		return err
	}
	if err := db.First(&expense, "id = ?", id).Error; err != nil {
		return err
	}
	return ok(c, expense)
}

func (h *ExpenseHandler) DeleteExpense(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	result := h.db.WithContext(c.UserContext()).Delete(&models.Expense{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotFound
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func validateExpense(e *models.Expense) error {
	e.Category = strings.ToLower(strings.TrimSpace(e.Category))
	e.Description = strings.TrimSpace(e.Description)
	if e.Category == "" {
		return errCategoryRequired
	}
	if !e.Amount.IsPositive() {
		return errInvalidAmount
	}
	if e.SpentAt.IsZero() {
		e.SpentAt = time.Now()
	}
	e.SpentAt = e.SpentAt.UTC()
	return nil
}
