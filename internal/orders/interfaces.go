package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Order, *pagination.Cursor, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, query listQuery) ([]models.Order, *pagination.Cursor, error)
	VendorHasItems(ctx context.Context, vendorID, orderID uuid.UUID) (bool, error)
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, payment *enums.PaymentStatus) (bool, error)
}

type listQuery struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.OrderStatus
}
