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
)

const (
	defaultServiceMinutes = 30
	queueJoinAttempts     = 3
	queueDateLayout       = "2006-01-02"
)

var (
	ErrQueueEntryNotFound = apperr.NotFound("queue_entry_not_found",
		"queue entry not found", "antrean tidak ditemukan")
	ErrCustomerNameRequired = apperr.Validation("customer_name_required",
		"customer name is required", "nama pelanggan wajib diisi")
	ErrQueueBusy = apperr.Conflict("queue_busy",
		"the queue is busy, please try again", "antrean sedang sibuk, silakan coba lagi")
	ErrInvalidQueueTransition = apperr.Conflict("invalid_queue_transition",
		"queue status cannot change that way", "status antrean tidak dapat diubah seperti itu")
)

var queueTransitions = map[models.QueueStatus][]models.QueueStatus{
	models.QueueWaiting:   {models.QueueInService, models.QueueCancelled},
	models.QueueInService: {models.QueueDone},
}

var activeQueueStatuses = []models.QueueStatus{models.QueueWaiting, models.QueueInService}

// JoinQueueRequest adds a walk-in customer to today's line.
type JoinQueueRequest struct {
	UserID       *uuid.UUID `json:"-"`
	CustomerName string     `json:"customer_name"`
	ServiceID    uuid.UUID  `json:"service_id"`
	BarberID     *uuid.UUID `json:"barber_id"`
}

// QueueService manages the walk-in queue.
type QueueService struct {
	db       *gorm.DB
	log      *zap.Logger
	location *time.Location
	now      func() time.Time
}

// NewQueueService creates a new QueueService. Queue days follow loc.
func NewQueueService(db *gorm.DB, loc *time.Location, log *zap.Logger) *QueueService {
	if loc == nil {
		loc = time.Local
	}
	return &QueueService{
		db:       db,
		log:      log.Named("queue"),
		location: loc,
		now:      time.Now,
	}
}

// Location is the time zone queue days are counted in.
func (s *QueueService) Location() *time.Location {
	return s.location
}

func (s *QueueService) today() string {
	return s.now().In(s.location).Format(queueDateLayout)
}

// Join appends a customer to today's queue. Two joins racing for the same
// position collide on the (queue_date, position) unique index; the loser
// retries with a fresh position.
func (s *QueueService) Join(ctx context.Context, req JoinQueueRequest) (*models.QueueEntry, error) {
	db := s.db.WithContext(ctx)

	name := strings.TrimSpace(req.CustomerName)
	if name == "" && req.UserID != nil {
		var user models.User
		if err := db.Select("name").First(&user, "id = ?", *req.UserID).Error; err == nil {
			name = user.Name
		}
	}
	if name == "" {
		return nil, ErrCustomerNameRequired
	}

	var service models.Service
	if err := db.First(&service, "id = ? AND is_active = ?", req.ServiceID, true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	if req.BarberID != nil {
		var count int64
		if err := db.Model(&models.Barber{}).Where("id = ? AND is_active = ?", *req.BarberID, true).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, ErrBarberNotFound
		}
	}

	date := s.today()
	for attempt := 1; attempt <= queueJoinAttempts; attempt++ {
		entry := models.QueueEntry{
			UserID:       req.UserID,
			CustomerName: name,
			ServiceID:    service.ID,
			BarberID:     req.BarberID,
			QueueDate:    date,
			Status:       models.QueueWaiting,
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			var maxPos struct{ MaxPosition int }
			if err := tx.Model(&models.QueueEntry{}).
				Select("COALESCE(MAX(position), 0) AS max_position").
				Where("queue_date = ?", date).
				Scan(&maxPos).Error; err != nil {
				return err
			}
			entry.Position = maxPos.MaxPosition + 1

			wait, err := waitAhead(tx, date, entry.Position)
			if err != nil {
				return err
			}
			entry.EstimatedWaitMinutes = wait

			return tx.Create(&entry).Error
		})
		if err == nil {
			entry.Service = &service
			s.log.Info("customer joined queue",
				zap.String("date", date),
				zap.Int("position", entry.Position),
				zap.Int("estimated_wait_minutes", entry.EstimatedWaitMinutes),
			)
			return &entry, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		s.log.Debug("queue position collision, retrying", zap.Int("attempt", attempt))
	}
	return nil, ErrQueueBusy
}

// waitAhead sums the service durations of active entries before position.
func waitAhead(tx *gorm.DB, date string, position int) (int, error) {
	var ahead []models.QueueEntry
	err := tx.Preload("Service").
		Where("queue_date = ? AND position < ? AND status IN ?", date, position, activeQueueStatuses).
		Find(&ahead).Error
	if err != nil {
		return 0, err
	}

	total := 0
	for _, e := range ahead {
		minutes := defaultServiceMinutes
		if e.Service != nil && e.Service.DurationMinutes > 0 {
			minutes = e.Service.DurationMinutes
		}
		total += minutes
	}
	return total, nil
}

// Today lists today's queue in position order. Estimated waits are
// recomputed for entries still waiting.
func (s *QueueService) Today(ctx context.Context) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.db.WithContext(ctx).
		Preload("Service").
		Where("queue_date = ?", s.today()).
		Order("position").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	elapsed := 0
	for i := range entries {
		switch entries[i].Status {
		case models.QueueWaiting:
			entries[i].EstimatedWaitMinutes = elapsed
		case models.QueueInService:
			entries[i].EstimatedWaitMinutes = 0
		default:
			continue
		}
		minutes := defaultServiceMinutes
		if entries[i].Service != nil && entries[i].Service.DurationMinutes > 0 {
			minutes = entries[i].Service.DurationMinutes
		}
		elapsed += minutes
	}
	return entries, nil
}

// UpdateStatus moves a queue entry along waiting -> in_service -> done, or cancels it.
func (s *QueueService) UpdateStatus(ctx context.Context, id uuid.UUID, to models.QueueStatus) (*models.QueueEntry, error) {
	db := s.db.WithContext(ctx)

	var entry models.QueueEntry
	if err := db.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, err
	}

	allowed := false
	for _, next := range queueTransitions[entry.Status] {
		if next == to {
			allowed = true
		}
	}
	if !allowed {
		return nil, ErrInvalidQueueTransition
	}

	updates := map[string]interface{}{"status": to}
	now := s.now().UTC()
	switch to {
	case models.QueueInService:
		updates["started_at"] = now
	case models.QueueDone, models.QueueCancelled:
		updates["finished_at"] = now
	}

	res := db.Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", entry.ID, entry.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidQueueTransition
	}

	if err := db.Preload("Service").First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
