package auth

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/internal/users"
	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/security"
)

const defaultBusinessType = "retail"

// Register creates the account and, for vendors, the storefront profile in
// one transaction, then opens a session.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := users.NormalizeEmail(req.Email)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	switch {
	case email == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	case req.Password == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	case firstName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	case lastName == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "last_name is required")
	}
	role, err := enums.ParseUserRole(string(req.Role))
	if err != nil || role == enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role. must be customer or vendor")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.users.WithTx(tx).Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    firstName,
			LastName:     lastName,
			Phone:        req.Phone,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "users_email_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		if role == enums.RoleVendor {
			profile := &models.VendorProfile{
				UserID:       created.ID,
				BusinessName: valueOr(req.BusinessName, fmt.Sprintf("%s's Store", firstName)),
				BusinessType: valueOr(req.BusinessType, defaultBusinessType),
			}
			if err := s.vendors.WithTx(tx).Create(ctx, profile); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor profile")
			}
			created.VendorProfile = profile
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	pair, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{TokenPair: *pair, User: users.FromModel(user)}, nil
}

func valueOr(v *string, fallback string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fallback
	}
	return strings.TrimSpace(*v)
}
