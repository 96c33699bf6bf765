package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/barbershop/internal/apperr"
	"github.com/example/barbershop/internal/models"
)

var (
	ErrServiceNotFound = apperr.NotFound("service_not_found",
		"service not found", "layanan tidak ditemukan")
	ErrBarberNotFound = apperr.NotFound("barber_not_found",
		"barber not found", "barber tidak ditemukan")
	ErrAppointmentNotFound = apperr.NotFound("appointment_not_found",
		"appointment not found", "janji temu tidak ditemukan")
	ErrSlotInPast = apperr.Validation("slot_in_past",
		"appointment time must be in the future", "waktu janji temu harus di masa depan")
	ErrSlotTaken = apperr.Conflict("slot_taken",
		"the barber is already booked at that time", "barber sudah dipesan pada waktu tersebut")
	ErrNoBarberAvailable = apperr.Conflict("no_barber_available",
		"no barber is free at that time", "tidak ada barber yang tersedia pada waktu tersebut")
	ErrInvalidAppointmentTransition = apperr.Conflict("invalid_appointment_transition",
		"appointment status cannot change that way", "status janji temu tidak dapat diubah seperti itu")
)

var appointmentTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.AppointmentPending:    {models.AppointmentConfirmed, models.AppointmentCancelled},
	models.AppointmentConfirmed:  {models.AppointmentInProgress, models.AppointmentCancelled, models.AppointmentNoShow},
	models.AppointmentInProgress: {models.AppointmentCompleted},
}

// blockingAppointmentStatuses occupy a barber's time.
var blockingAppointmentStatuses = []models.AppointmentStatus{
	models.AppointmentPending,
	models.AppointmentConfirmed,
	models.AppointmentInProgress,
}

// CanTransitionAppointment reports whether an appointment may go from one status to another.
func CanTransitionAppointment(from, to models.AppointmentStatus) bool {
	for _, next := range appointmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// BookingRequest asks for a slot. BarberID is optional.
type BookingRequest struct {
	ServiceID uuid.UUID  `json:"service_id"`
	BarberID  *uuid.UUID `json:"barber_id"`
	StartTime time.Time  `json:"start_time"`
	Notes     string     `json:"notes"`
}

// AppointmentFilter narrows appointment listings.
type AppointmentFilter struct {
	UserID   *uuid.UUID
	BarberID *uuid.UUID
	Status   models.AppointmentStatus
	From     *time.Time
	To       *time.Time
}

// BookingService schedules appointments.
type BookingService struct {
	db       *gorm.DB
	notifier AdminNotifier
	log      *zap.Logger
	now      func() time.Time
}

// NewBookingService creates a new BookingService.
func NewBookingService(db *gorm.DB, notifier AdminNotifier, log *zap.Logger) *BookingService {
	return &BookingService{
		db:       db,
		notifier: notifier,
		log:      log.Named("booking"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Book reserves a slot. Without a barber the first free active barber by
// name is assigned. The barber row is locked while checking for overlaps.
func (s *BookingService) Book(ctx context.Context, userID uuid.UUID, req BookingRequest) (*models.Appointment, error) {
	notes := strings.TrimSpace(req.Notes)
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return nil, ErrNotesTooLong
	}
	start := req.StartTime.UTC().Truncate(time.Minute)
	if !start.After(s.now()) {
		return nil, ErrSlotInPast
	}

	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var service models.Service
		if err := tx.First(&service, "id = ? AND is_active = ?", req.ServiceID, true).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrServiceNotFound
			}
			return err
		}
		end := start.Add(serviceDuration(service))

		var barber *models.Barber
		if req.BarberID != nil {
			var chosen models.Barber
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&chosen, "id = ? AND is_active = ?", *req.BarberID, true).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBarberNotFound
				}
				return err
			}
			busy, err := barberBusy(tx, chosen.ID, start, end)
			if err != nil {
				return err
			}
			if busy {
				return ErrSlotTaken
			}
			barber = &chosen
		} else {
			var candidates []models.Barber
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("is_active = ?", true).
				Order("name").
				Find(&candidates).Error
			if err != nil {
				return err
			}
			for i := range candidates {
				busy, err := barberBusy(tx, candidates[i].ID, start, end)
				if err != nil {
					return err
				}
				if !busy {
					barber = &candidates[i]
					break
				}
			}
			if barber == nil {
				return ErrNoBarberAvailable
			}
		}

		appt = models.Appointment{
			UserID:    userID,
			BarberID:  barber.ID,
			ServiceID: service.ID,
			StartTime: start,
			EndTime:   end,
			Price:     service.Price,
			Status:    models.AppointmentPending,
			Notes:     notes,
		}
		if err := tx.Create(&appt).Error; err != nil {
			return err
		}
		appt.Barber = barber
		appt.Service = &service
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("barber", appt.Barber.Name),
		zap.Time("start", appt.StartTime),
	)

	if s.notifier != nil {
		var customer models.User
		_ = s.db.Select("name").First(&customer, "id = ?", userID).Error
		msg := AppointmentNotification{
			CustomerName: customer.Name,
			ServiceName:  appt.Service.Name,
			BarberName:   appt.Barber.Name,
			StartTime:    appt.StartTime,
		}
		notifyAsync(s.log, "new_appointment", func(ctx context.Context) error {
			return s.notifier.NotifyNewAppointment(ctx, msg)
		})
	}

	return &appt, nil
}

func barberBusy(tx *gorm.DB, barberID uuid.UUID, start, end time.Time) (bool, error) {
	var count int64
	err := tx.Model(&models.Appointment{}).
		Where("barber_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			barberID, blockingAppointmentStatuses, end, start).
		Count(&count).Error
	return count > 0, err
}

func serviceDuration(service models.Service) time.Duration {
	if service.DurationMinutes <= 0 {
		return defaultServiceMinutes * time.Minute
	}
	return time.Duration(service.DurationMinutes) * time.Minute
}

// List returns appointments ordered by start time.
func (s *BookingService) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	query := s.db.WithContext(ctx).Preload("Service").Preload("Barber").Preload("User")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.BarberID != nil {
		query = query.Where("barber_id = ?", *filter.BarberID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("start_time >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("start_time < ?", filter.To.UTC())
	}

	var appts []models.Appointment
	if err := query.Order("start_time").Find(&appts).Error; err != nil {
		return nil, err
	}
	return appts, nil
}

// UpdateStatus moves an appointment along its lifecycle.
func (s *BookingService) UpdateStatus(ctx context.Context, id uuid.UUID, to models.AppointmentStatus) (*models.Appointment, error) {
	return s.transition(ctx, id, nil, to)
}

// CancelByCustomer lets a customer cancel an own pending or confirmed appointment.
func (s *BookingService) CancelByCustomer(ctx context.Context, userID, id uuid.UUID) (*models.Appointment, error) {
	return s.transition(ctx, id, &userID, models.AppointmentCancelled)
}

func (s *BookingService) transition(ctx context.Context, id uuid.UUID, userID *uuid.UUID, to models.AppointmentStatus) (*models.Appointment, error) {
	db := s.db.WithContext(ctx)

	query := db
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var appt models.Appointment
	if err := query.First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if !CanTransitionAppointment(appt.Status, to) {
		return nil, ErrInvalidAppointmentTransition
	}

	res := db.Model(&models.Appointment{}).
		Where("id = ? AND status = ?", appt.ID, appt.Status).
		Update("status", to)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidAppointmentTransition
	}

	var updated models.Appointment
	if err := db.Preload("Service").Preload("Barber").First(&updated, "id = ?", id).Error; err != nil {
		return nil, err
	}
	s.log.Info("appointment status changed",
		zap.String("appointment_id", updated.ID.String()),
		zap.String("status", string(to)),
	)
	return &updated, nil
}
