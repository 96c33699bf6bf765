package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppointmentStatus tracks a scheduled visit.
type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "pending"
	AppointmentConfirmed  AppointmentStatus = "confirmed"
	AppointmentInProgress AppointmentStatus = "in_progress"
	AppointmentCompleted  AppointmentStatus = "completed"
	AppointmentCancelled  AppointmentStatus = "cancelled"
	AppointmentNoShow     AppointmentStatus = "no_show"
)

// Appointment is a scheduled service slot with a barber.
type Appointment struct {
	BaseModel
	UserID    uuid.UUID         `gorm:"type:char(36);index" json:"user_id"`
	User      *User             `json:"user,omitempty"`
	BarberID  uuid.UUID         `gorm:"type:char(36);index" json:"barber_id"`
	Barber    *Barber           `json:"barber,omitempty"`
	ServiceID uuid.UUID         `gorm:"type:char(36)" json:"service_id"`
	Service   *Service          `json:"service,omitempty"`
	StartTime time.Time         `gorm:"index" json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Price     decimal.Decimal   `gorm:"type:numeric(14,2)" json:"price"`
	Status    AppointmentStatus `gorm:"type:varchar(16);index" json:"status"`
	Notes     string            `json:"notes"`
}

// QueueStatus tracks a walk-in customer.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "waiting"
	QueueInService QueueStatus = "in_service"
	QueueDone      QueueStatus = "done"
	QueueCancelled QueueStatus = "cancelled"
)

// QueueEntry is a walk-in customer's place in the day's line. Position is
// unique per queue date.
type QueueEntry struct {
	BaseModel
	UserID               *uuid.UUID  `gorm:"type:char(36)" json:"user_id"`
	CustomerName         string      `json:"customer_name"`
	ServiceID            uuid.UUID   `gorm:"type:char(36)" json:"service_id"`
	Service              *Service    `json:"service,omitempty"`
	BarberID             *uuid.UUID  `gorm:"type:char(36)" json:"barber_id"`
	QueueDate            string      `gorm:"size:10;uniqueIndex:idx_queue_slot" json:"queue_date"`
	Position             int         `gorm:"uniqueIndex:idx_queue_slot" json:"position"`
	EstimatedWaitMinutes int         `json:"estimated_wait_minutes"`
	Status               QueueStatus `gorm:"type:varchar(16);index" json:"status"`
	StartedAt            *time.Time  `json:"started_at"`
	FinishedAt           *time.Time  `json:"finished_at"`
}
