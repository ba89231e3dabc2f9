package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VendorProfile holds the storefront details of a vendor account.
type VendorProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:vendor_profiles_user_id_key"`
	BusinessName string    `gorm:"column:business_name;not null"`
	BusinessType string    `gorm:"column:business_type;not null"`
	Description  *string   `gorm:"column:description"`
	Address      *string   `gorm:"column:address"`
	GSTNumber    *string   `gorm:"column:gst_number"`
	IsVerified   bool      `gorm:"column:is_verified;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *VendorProfile) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}
