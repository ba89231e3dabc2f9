package auth

import (
	"github.com/angelmondragon/surplus-backend/internal/users"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

// RegisterRequest carries the sign-up payload for customers and vendors.
type RegisterRequest struct {
	Email        string         `json:"email" validate:"required,email"`
	Password     string         `json:"password" validate:"required,min=8"`
	FirstName    string         `json:"first_name" validate:"required"`
	LastName     string         `json:"last_name" validate:"required"`
	Role         enums.UserRole `json:"role" validate:"required"`
	Phone        *string        `json:"phone,omitempty"`
	BusinessName *string        `json:"business_name,omitempty"`
	BusinessType *string        `json:"business_type,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VendorProfileUpdate is the nested storefront part of a profile edit.
type VendorProfileUpdate struct {
	BusinessName *string `json:"business_name,omitempty"`
	BusinessType *string `json:"business_type,omitempty"`
	Description  *string `json:"description,omitempty"`
	Address      *string `json:"address,omitempty"`
	GSTNumber    *string `json:"gst_number,omitempty"`
}

type UpdateProfileRequest struct {
	FirstName     *string              `json:"first_name,omitempty"`
	LastName      *string              `json:"last_name,omitempty"`
	Phone         *string              `json:"phone,omitempty"`
	VendorProfile *VendorProfileUpdate `json:"vendor_profile,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// TokenPair is returned by every flow that opens a session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResponse bundles the user with a fresh token pair.
type AuthResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
