package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is a back-office cost entry used by financial reports.
type Expense struct {
	BaseModel
	Category    string          `gorm:"size:64;index" json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	SpentAt     time.Time       `gorm:"index" json:"spent_at"`
	RecordedBy  uuid.UUID       `gorm:"type:char(36)" json:"recorded_by"`
}
