package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserAddress is a delivery address saved on a user's profile.
type UserAddress struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:user_addresses_user_id_idx;uniqueIndex:user_addresses_user_address_key"`
	Alias      string    `gorm:"column:alias;not null;default:'';uniqueIndex:user_addresses_user_address_key"`
	Details    string    `gorm:"column:details;not null;uniqueIndex:user_addresses_user_address_key"`
	City       string    `gorm:"column:city;not null;uniqueIndex:user_addresses_user_address_key"`
	PostalCode string    `gorm:"column:postal_code;not null;default:'';uniqueIndex:user_addresses_user_address_key"`
	Phone      string    `gorm:"column:phone;not null;uniqueIndex:user_addresses_user_address_key"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (a *UserAddress) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
