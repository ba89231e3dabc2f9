package product

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
)

// Repository owns every write to products, including the views_count and
// sold_count counters.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindDetail loads the product with its category and vendor.
func (r *Repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Vendor").
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindOwned loads a product only if vendorID owns it.
func (r *Repository) FindOwned(ctx context.Context, vendorID, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ? AND vendor_id = ?", id, vendorID).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns one page of active products plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters ListFilters, sort enums.ProductSort, page pagination.Page, today time.Time) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("products.is_active = ?", true)
	q = applyFilters(q, filters, today)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := q.Preload("Category").
		Order(orderClause(sort)).
		Order("products.id ASC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&rows).Error
	return rows, total, err
}

func applyFilters(q *gorm.DB, filters ListFilters, today time.Time) *gorm.DB {
	if term := strings.ToLower(strings.TrimSpace(filters.Search)); term != "" {
		like := "%" + term + "%"
		q = q.Where(
			"LOWER(products.name) LIKE ? OR LOWER(COALESCE(products.description, '')) LIKE ? OR LOWER(COALESCE(products.brand, '')) LIKE ?",
			like, like, like,
		)
	}
	if filters.CategoryID != nil {
		q = q.Where("products.category_id = ?", *filters.CategoryID)
	}
	if filters.MinPrice != nil {
		q = q.Where("products.discounted_price >= ?", *filters.MinPrice)
	}
	if filters.MaxPrice != nil {
		q = q.Where("products.discounted_price <= ?", *filters.MaxPrice)
	}
	if filters.DaysToExpiry != nil {
		q = q.Where("products.expiry_date <= ?", today.AddDate(0, 0, *filters.DaysToExpiry))
	}
	return q
}

func orderClause(sort enums.ProductSort) string {
	switch sort {
	case enums.ProductSortPriceLow:
		return "products.discounted_price ASC"
	case enums.ProductSortPriceHigh:
		return "products.discounted_price DESC"
	case enums.ProductSortExpiry:
		return "products.expiry_date ASC"
	case enums.ProductSortPopular:
		return "products.sold_count DESC"
	default:
		return "products.created_at DESC"
	}
}

// Featured returns in-stock products expiring within the window, best
// discount first.
func (r *Repository) Featured(ctx context.Context, limit int, today time.Time, window int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ? AND stock_quantity > 0", true).
		Where("expiry_date <= ?", today.AddDate(0, 0, window)).
		Order("discount_percentage DESC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// Trending returns active products by sales then views.
func (r *Repository) Trending(ctx context.Context, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("is_active = ?", true).
		Order("sold_count DESC").
		Order("views_count DESC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListByVendor includes inactive products.
func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID, page pagination.Page) ([]models.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{}).Where("vendor_id = ?", vendorID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Product
	err := q.Preload("Category").
		Order("created_at DESC").
		Order("id ASC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update writes the vendor-editable columns of an already loaded product.
// Counters are left alone so concurrent sales are never overwritten.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"category_id":         product.CategoryID,
			"name":                product.Name,
			"description":         product.Description,
			"brand":               product.Brand,
			"sku":                 product.SKU,
			"original_price":      product.OriginalPrice,
			"discounted_price":    product.DiscountedPrice,
			"discount_percentage": product.DiscountPercentage,
			"stock_quantity":      product.StockQuantity,
			"unit":                product.Unit,
			"expiry_date":         product.ExpiryDate,
			"manufacturing_date":  product.ManufacturingDate,
			"image_url":           product.ImageURL,
			"is_active":           product.IsActive,
		}).Error
}

// Delete removes the product and its cart lines, detaching order lines so
// their snapshots survive.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if err := db.Model(&models.OrderItem{}).Where("product_id = ?", id).Update("product_id", nil).Error; err != nil {
		return err
	}
	return db.Delete(&models.Product{}, "id = ?", id).Error
}

// IncrementViews bumps views_count by one.
func (r *Repository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
}

// ApplySale moves qty from stock to sold. It reports false, changing nothing,
// when less than qty is in stock.
func (r *Repository) ApplySale(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		UpdateColumns(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity - ?", qty),
			"sold_count":     gorm.Expr("sold_count + ?", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RevertSale hands qty back to stock. A deleted product is skipped.
func (r *Repository) RevertSale(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", qty),
			"sold_count":     gorm.Expr("sold_count - ?", qty),
		}).Error
}

// VendorOwnsAny reports whether any of productIDs belongs to vendorID.
func (r *Repository) VendorOwnsAny(ctx context.Context, vendorID uuid.UUID, productIDs []uuid.UUID) (bool, error) {
	if len(productIDs) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("vendor_id = ? AND id IN ?", vendorID, productIDs).
		Count(&count).Error
	return count > 0, err
}

// DeactivateExpired hides active listings whose expiry date is before today.
func (r *Repository) DeactivateExpired(ctx context.Context, today time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("is_active = ? AND expiry_date < ?", true, today).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
