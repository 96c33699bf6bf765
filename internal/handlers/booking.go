package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/middleware"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/services"
)

var errNotYourAppointment = apperr.Permission("appointment_not_assigned",
	"this appointment is assigned to another barber", "janji temu ini milik barber lain")

// BookingHandler serves appointments and the walk-in queue.
type BookingHandler struct {
	db      *gorm.DB
	booking *services.BookingService
	queue   *services.QueueService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(db *gorm.DB, booking *services.BookingService, queue *services.QueueService) *BookingHandler {
	return &BookingHandler{db: db, booking: booking, queue: queue}
}

// BookAppointment reserves a slot for the signed-in customer.
func (h *BookingHandler) BookAppointment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var req services.BookingRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	appt, err := h.booking.Book(c.UserContext(), userID, req)
	if err != nil {
		return err
	}
	return created(c, appt)
}

// ListMyAppointments returns the signed-in customer's appointments.
func (h *BookingHandler) ListMyAppointments(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	filter := services.AppointmentFilter{
		UserID: &userID,
		Status: models.AppointmentStatus(c.Query("status")),
	}
	appts, err := h.booking.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return ok(c, appts)
}

// CancelMyAppointment cancels a pending or confirmed appointment of the caller.
func (h *BookingHandler) CancelMyAppointment(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	appt, err := h.booking.CancelByCustomer(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return ok(c, appt)
}

// ListAppointments is the back-office schedule. Barbers only see their own chair.
func (h *BookingHandler) ListAppointments(c *fiber.Ctx) error {
	filter := services.AppointmentFilter{Status: models.AppointmentStatus(c.Query("status"))}

	if v := c.Query("barber_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return errInvalidID
		}
		filter.BarberID = &id
	}

	own, err := h.ownBarberID(c)
	if err != nil {
		return err
	}
	if own != nil {
		filter.BarberID = own
	}

	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := parseDateRange(c, h.queue.Location(), 7)
		if err != nil {
			return err
		}
		filter.From, filter.To = &from, &to
	}

	appts, err := h.booking.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return ok(c, appts)
}

type appointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status"`
}

// UpdateAppointmentStatus moves an appointment along its lifecycle.
func (h *BookingHandler) UpdateAppointmentStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req appointmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	own, err := h.ownBarberID(c)
	if err != nil {
		return err
	}
	if own != nil {
		var appt models.Appointment
		if err := h.db.WithContext(c.UserContext()).Select("id", "barber_id").
			First(&appt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return services.ErrAppointmentNotFound
			}
			return err
		}
		if appt.BarberID != *own {
			return errNotYourAppointment
		}
	}

	appt, err := h.booking.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return err
	}
	return ok(c, appt)
}

// ownBarberID resolves the barber record of a signed-in barber. Admins get nil.
func (h *BookingHandler) ownBarberID(c *fiber.Ctx) (*uuid.UUID, error) {
	role, _ := middleware.GetCurrentRole(c)
	if role != models.RoleBarber {
		return nil, nil
	}
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}

	var barber models.Barber
	if err := h.db.WithContext(c.UserContext()).First(&barber, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrBarberNotFound
		}
		return nil, err
	}
	return &barber.ID, nil
}

// TodayQueue lists today's walk-in queue with estimated waits.
func (h *BookingHandler) TodayQueue(c *fiber.Ctx) error {
	entries, err := h.queue.Today(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, entries)
}

// JoinQueue adds a walk-in customer. Signed-in customers are linked to the entry.
func (h *BookingHandler) JoinQueue(c *fiber.Ctx) error {
	var req services.JoinQueueRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}
	if userID, found := middleware.GetCurrentUserID(c); found {
		req.UserID = &userID
	}

	entry, err := h.queue.Join(c.UserContext(), req)
	if err != nil {
		return err
	}
	return created(c, entry)
}

type queueStatusRequest struct {
	Status models.QueueStatus `json:"status"`
}

// UpdateQueueStatus moves a queue entry forward or cancels it.
func (h *BookingHandler) UpdateQueueStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req queueStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return errInvalidBody
	}

	entry, err := h.queue.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return err
	}
	return ok(c, entry)
}
