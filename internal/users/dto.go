package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/surplus-backend/internal/vendors"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

// UserDTO is a user as the API returns it; credentials never leave the
// service.
type UserDTO struct {
	ID            uuid.UUID                 `json:"id"`
	Email         string                    `json:"email"`
	FirstName     string                    `json:"first_name"`
	LastName      string                    `json:"last_name"`
	Phone         *string                   `json:"phone,omitempty"`
	Role          enums.UserRole            `json:"role"`
	IsActive      bool                      `json:"is_active"`
	LastLoginAt   *time.Time                `json:"last_login_at,omitempty"`
	VendorProfile *vendors.VendorProfileDTO `json:"vendor_profile,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.Role == enums.RoleVendor {
		dto.VendorProfile = vendors.ProfileFromModel(u.VendorProfile)
	}
	return dto
}

// CreateUserDTO is what registration hands the repository. Role defaults to
// customer and IsActive to true.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         enums.UserRole
	IsActive     *bool
}

func (c CreateUserDTO) ToModel() *models.User {
	user := &models.User{
		Email:        NormalizeEmail(c.Email),
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Phone:        c.Phone,
		Role:         c.Role,
		IsActive:     c.IsActive == nil || *c.IsActive,
	}
	if user.Role == "" {
		user.Role = enums.RoleCustomer
	}
	return user
}

// ProfilePatch holds optional profile edits; nil fields stay unchanged.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
}

func (p ProfilePatch) columns() map[string]any {
	cols := make(map[string]any, 3)
	for name, v := range map[string]*string{"first_name": p.FirstName, "last_name": p.LastName, "phone": p.Phone} {
		if v != nil {
			cols[name] = *v
		}
	}
	return cols
}
