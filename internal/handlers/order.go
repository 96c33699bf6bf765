package handlers

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/barbershop/internal/orderstatus"
	"github.com/example/barbershop/internal/services"
	"github.com/example/barbershop/internal/utils"
)

// OrderHandler manages customer order endpoints.
type OrderHandler struct {
	checkout *services.CheckoutService
	orders   *services.OrderService
	payments *services.PaymentService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(checkout *services.CheckoutService, orders *services.OrderService, payments *services.PaymentService) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, payments: payments}
}

// CreateOrder checks out the cart (or the listed items) for the signed-in customer.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	order, err := h.checkout.Checkout(c.UserContext(), userID, req)
	if err != nil {
		return err
	}

	return created(c, order)
}

// ListOrders returns orders for the authenticated user.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	pg := utils.ParsePagination(c)
	filter := services.OrderFilter{UserID: &userID}
	if status := c.Query("status"); status != "" {
		s, err := orderstatus.Parse(status)
		if err != nil {
			return errInvalidStatus
		}
		filter.Status = s
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

// GetOrder returns a single order owned by the authenticated user.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Get(c.UserContext(), id, &userID)
	if err != nil {
		return err
	}
	return ok(c, order)
}

// UploadPaymentProof accepts the transfer receipt as the multipart field "file".
func (h *OrderHandler) UploadPaymentProof(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	filename, data, err := readUpload(c, "file")
	if err != nil {
		return err
	}

	order, err := h.payments.SubmitPaymentProof(c.UserContext(), userID, id, filename, data)
	if err != nil {
		return err
	}
	return ok(c, order)
}

// CancelOrder lets a customer withdraw an order that has not been paid yet.
func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orders.Cancel(c.UserContext(), id, &userID)
	if err != nil {
		return err
	}
	return ok(c, order)
}

// readUpload loads a multipart file into memory, refusing anything over the
// upload size limit before reading it.
func readUpload(c *fiber.Ctx, field string) (string, []byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", nil, services.ErrEmptyFile
	}
	if header.Size > services.MaxUploadSize {
		return "", nil, services.ErrFileTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxUploadSize+1))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// parseDateRange reads from/to query params as YYYY-MM-DD dates. The
// returned range is half-open: to covers the whole last day.
func parseDateRange(c *fiber.Ctx, loc *time.Location, defaultDays int) (time.Time, time.Time, error) {
	today := time.Now().In(loc)
	to := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	from := to.AddDate(0, 0, -defaultDays)

	if v := c.Query("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidDate
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidDate
		}
		to = t.AddDate(0, 0, 1)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, errInvalidDate
	}
	return from.UTC(), to.UTC(), nil
}
