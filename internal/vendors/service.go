package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
)

// Service resolves vendor identity and reports storefront stats.
type Service interface {
	ResolveVendorID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	Dashboard(ctx context.Context, vendorID uuid.UUID) (*DashboardDTO, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	return &service{repo: repo}, nil
}

// ResolveVendorID maps an authenticated vendor user to its profile id.
func (s *service) ResolveVendorID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor profile not found")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	return profile.ID, nil
}

func (s *service) Dashboard(ctx context.Context, vendorID uuid.UUID) (*DashboardDTO, error) {
	stats, err := s.repo.Dashboard(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor dashboard")
	}
	return stats, nil
}
