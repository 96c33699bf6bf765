package models

import "github.com/google/uuid"

// CartItem is one product line in a customer's cart.
type CartItem struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:char(36);uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:char(36);uniqueIndex:idx_cart_user_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `json:"quantity"`
}
