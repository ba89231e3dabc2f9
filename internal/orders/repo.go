package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
)

const vendorProductsSubquery = "SELECT id FROM products WHERE vendor_id = ?"

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order header and its lines.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrder).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsOrder).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func orderItemsOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, query listQuery) ([]models.Order, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items", orderItemsOrder).
		Where("user_id = ?", userID)
	return r.page(q, query)
}

// ListForVendor returns orders containing at least one of the vendor's
// products. Only the vendor's own lines are loaded.
func (r *repository) ListForVendor(ctx context.Context, vendorID uuid.UUID, query listQuery) ([]models.Order, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return orderItemsOrder(db.Where("product_id IN ("+vendorProductsSubquery+")", vendorID))
		}).
		Where("id IN (SELECT order_id FROM order_items WHERE product_id IN ("+vendorProductsSubquery+"))", vendorID)
	return r.page(q, query)
}

func (r *repository) page(q *gorm.DB, query listQuery) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(query.Limit)
	normalized := pagination.NormalizeLimit(query.Limit)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}
	if len(orders) > normalized {
		last := orders[normalized-1]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return orders, nil, nil
}

func (r *repository) VendorHasItems(ctx context.Context, vendorID, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND product_id IN ("+vendorProductsSubquery+")", orderID, vendorID).
		Count(&count).Error
	return count > 0, err
}

// TransitionStatus moves the order from -> to only if it is still in from.
func (r *repository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, payment *enums.PaymentStatus) (bool, error) {
	updates := map[string]any{"status": to}
	if payment != nil {
		updates["payment_status"] = *payment
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
