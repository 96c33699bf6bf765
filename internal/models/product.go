package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a retail item sold through the shop (pomade, shampoo, combs).
type Product struct {
	BaseModel
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Category      string          `gorm:"index" json:"category"`
	Price         decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	CostPrice     decimal.Decimal `gorm:"type:numeric(14,2)" json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	IsActive      bool            `json:"is_active"`
}

// Service is a bookable barbershop treatment.
type Service struct {
	BaseModel
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `gorm:"type:numeric(14,2)" json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	ImageURL        string          `json:"image_url"`
	IsActive        bool            `json:"is_active"`
}

// Barber is a staff member who can take appointments and queue entries.
type Barber struct {
	BaseModel
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	Bio         string         `json:"bio"`
	PhotoURL    string         `json:"photo_url"`
	Specialties pq.StringArray `gorm:"type:text" json:"specialties"`
	IsActive    bool           `json:"is_active"`
	UserID      *uuid.UUID     `gorm:"type:char(36)" json:"user_id"`
}
