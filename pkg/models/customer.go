package models

import "time"

// NoCustomer is shown wherever an invoice has no customer attached.
const NoCustomer = "No Customer"

// Customer is an invoice recipient. Either Email or Phone must be set.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string `gorm:"size:255;not null;index" json:"name" validate:"required"`
	Address string `gorm:"type:text" json:"address"`
	Email   string `gorm:"size:255" json:"email" validate:"omitempty,email"`
	Phone   string `gorm:"size:64" json:"phone" validate:"required_without=Email"`
}
