package models

// Role gates access to back-office routes.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleBarber   Role = "barber"
)

// User is anyone who can sign in: customers, barbers and admins.
type User struct {
	BaseModel
	Name         string `json:"name"`
	Phone        string `gorm:"size:32;uniqueIndex" json:"phone"`
	Email        string `gorm:"size:255" json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `gorm:"type:varchar(16);index" json:"role"`
}
