package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/orderstatus"
	"github.com/example/barbershop/internal/services"
	"github.com/example/barbershop/internal/utils"
)

// AdminHandler manages admin-only order and customer endpoints.
type AdminHandler struct {
	db       *gorm.DB
	orders   *services.OrderService
	payments *services.PaymentService
	reports  *services.ReportService
	uploader services.MediaUploader
	location *time.Location
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(
	db *gorm.DB,
	orders *services.OrderService,
	payments *services.PaymentService,
	reports *services.ReportService,
	uploader services.MediaUploader,
	loc *time.Location,
) *AdminHandler {
	return &AdminHandler{
		db:       db,
		orders:   orders,
		payments: payments,
		reports:  reports,
		uploader: uploader,
		location: loc,
	}
}

// DashboardStats returns what needs attention today plus order counts by status.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	dashboard, err := h.reports.Dashboard(c.UserContext())
	if err != nil {
		return err
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var statusCounts []statusCount
	if err := h.db.WithContext(c.UserContext()).Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64, len(statusCounts))
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	return ok(c, fiber.Map{
		"today":            dashboard,
		"orders_by_status": ordersByStatus,
	})
}

// ListAllOrders returns all orders with pagination, filtering, and customer info.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	filter := services.OrderFilter{Search: c.Query("search")}
	if status := c.Query("status"); status != "" {
		s, err := orderstatus.Parse(status)
		if err != nil {
			return errInvalidStatus
		}
		filter.Status = s
	}
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := parseDateRange(c, h.location, 30)
		if err != nil {
			return err
		}
		filter.From, filter.To = &from, &to
	}

	orders, total, err := h.orders.List(c.UserContext(), filter, pg.Offset, pg.Limit)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns any order.
func (h *AdminHandler) GetOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Get(c.UserContext(), id, nil)
	if err != nil {
		return err
	}
	return ok(c, order)
}

type verifyRequest struct {
	Decision services.Decision `json:"decision"`
	Notes    string            `json:"notes"`
}

// VerifyPayment approves or rejects a pending payment.
func (h *AdminHandler) VerifyPayment(c *fiber.Ctx) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	order, err := h.payments.Verify(c.UserContext(), services.VerifyRequest{
		OrderID:  id,
		Decision: services.Decision(strings.ToLower(string(req.Decision))),
		Notes:    req.Notes,
		AdminID:  adminID,
	})
	if err != nil {
		return err
	}
	return ok(c, order)
}

// AdvanceOrder moves a paid order one fulfillment step forward.
func (h *AdminHandler) AdvanceOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Advance(c.UserContext(), id)
	if err != nil {
		return err
	}
	return ok(c, order)
}

// CancelOrder cancels any order that has not entered fulfillment.
func (h *AdminHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Cancel(c.UserContext(), id, nil)
	if err != nil {
		return err
	}
	return ok(c, order)
}

// ListAllUsers returns registered users with their order count and spend.
func (h *AdminHandler) ListAllUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	db := h.db.WithContext(c.UserContext())
	query := db.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return err
	}

	type userStats struct {
		UserID     string
		OrderCount int64
		TotalSpent decimal.Decimal
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID.String()
	}

	var stats []userStats
	if len(ids) > 0 {
		if err := db.Model(&models.Order{}).
			Select("user_id, count(*) as order_count, COALESCE(SUM(total), 0) as total_spent").
			Where("user_id IN ? AND status IN ?", ids, services.RevenueStatuses).
			Group("user_id").
			Scan(&stats).Error; err != nil {
			return err
		}
	}

	statsMap := make(map[string]userStats, len(stats))
	for _, s := range stats {
		statsMap[s.UserID] = s
	}

	type userResponse struct {
		models.User
		OrderCount int64           `json:"order_count"`
		TotalSpent decimal.Decimal `json:"total_spent"`
	}

	result := make([]userResponse, len(users))
	for i, u := range users {
		result[i] = userResponse{User: u, TotalSpent: decimal.Zero}
		if s, found := statsMap[u.ID.String()]; found {
			result[i].OrderCount = s.OrderCount
			result[i].TotalSpent = s.TotalSpent
		}
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result,
		"pagination": pg.Meta(total),
	})
}

// Upload stores a catalogue image and returns its public URL.
func (h *AdminHandler) Upload(c *fiber.Ctx) error {
	filename, data, err := readUpload(c, "file")
	if err != nil {
		return err
	}

	url, err := h.uploader.Upload(c.UserContext(), filename, data)
	if err != nil {
		return err
	}
	return created(c, fiber.Map{"url": url})
}
