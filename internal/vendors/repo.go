package vendors

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

// Repository persists vendor profiles and aggregates vendor stats.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, profile *models.VendorProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	var profile models.VendorProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *Repository) UpdateByUserID(ctx context.Context, userID uuid.UUID, patch ProfilePatch) error {
	updates := map[string]any{}
	if patch.BusinessName != nil {
		updates["business_name"] = *patch.BusinessName
	}
	if patch.BusinessType != nil {
		updates["business_type"] = *patch.BusinessType
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}
	if patch.GSTNumber != nil {
		updates["gst_number"] = *patch.GSTNumber
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.VendorProfile{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

type catalogStats struct {
	TotalProducts  int64
	ActiveProducts int64
	TotalStock     int64
	TotalSold      int64
}

// Dashboard aggregates catalog counters and revenue from non-cancelled orders.
func (r *Repository) Dashboard(ctx context.Context, vendorID uuid.UUID) (*DashboardDTO, error) {
	var stats catalogStats
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Select(`COUNT(*) AS total_products,
			COALESCE(SUM(CASE WHEN is_active THEN 1 ELSE 0 END), 0) AS active_products,
			COALESCE(SUM(stock_quantity), 0) AS total_stock,
			COALESCE(SUM(sold_count), 0) AS total_sold`).
		Where("vendor_id = ?", vendorID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	var revenue decimal.NullDecimal
	err = r.db.WithContext(ctx).
		Table("order_items").
		Select("SUM(order_items.total_price)").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("products.vendor_id = ? AND orders.status <> ?", vendorID, enums.OrderStatusCancelled).
		Row().Scan(&revenue)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	if revenue.Valid {
		total = revenue.Decimal.Round(2)
	}

	return &DashboardDTO{
		TotalProducts:  stats.TotalProducts,
		ActiveProducts: stats.ActiveProducts,
		TotalStock:     stats.TotalStock,
		TotalSold:      stats.TotalSold,
		TotalRevenue:   total,
	}, nil
}
