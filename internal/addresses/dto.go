package addresses

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

type AddressDTO struct {
	ID           uuid.UUID `json:"id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 *string   `json:"address_line2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateAddressInput struct {
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 *string
	City         string
	State        string
	Pincode      string
	IsDefault    bool
}

// UpdateAddressInput is partial; IsDefault only ever promotes.
type UpdateAddressInput struct {
	FullName     *string
	Phone        *string
	AddressLine1 *string
	AddressLine2 *string
	City         *string
	State        *string
	Pincode      *string
	IsDefault    bool
}

func FromModel(a *models.Address) AddressDTO {
	return AddressDTO{
		ID:           a.ID,
		FullName:     a.FullName,
		Phone:        a.Phone,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		City:         a.City,
		State:        a.State,
		Pincode:      a.Pincode,
		IsDefault:    a.IsDefault,
		CreatedAt:    a.CreatedAt,
	}
}
