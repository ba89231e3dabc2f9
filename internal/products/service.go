package product

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/outbox"
	"github.com/angelmondragon/surplus-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
	"github.com/angelmondragon/surplus-backend/pkg/storage/gcs"
)

const (
	DefaultDiscoveryLimit = 10
	MaxDiscoveryLimit     = 50
	featuredWindowDays    = 7
)

// Service exposes catalog reads and vendor product management.
type Service interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	Featured(ctx context.Context, limit int) ([]ProductDTO, error)
	Trending(ctx context.Context, limit int) ([]ProductDTO, error)

	CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, vendorID, productID uuid.UUID) error
	ListVendorProducts(ctx context.Context, vendorID uuid.UUID, page pagination.Page) (*ProductListResult, error)
	CreateImageUpload(ctx context.Context, vendorID uuid.UUID, input ImageUploadInput) (*gcs.SignedUpload, error)
}

type categoryChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// ImageSigner issues signed upload URLs for product images.
type ImageSigner interface {
	SignedUploadURL(ctx context.Context, objectKey, contentType string) (*gcs.SignedUpload, error)
}

type service struct {
	repo       *Repository
	tx         db.TxRunner
	categories categoryChecker
	emitter    outbox.Emitter
	signer     ImageSigner
	media      config.MediaConfig
	logg       *logger.Logger
	now        func() time.Time
}

// NewService constructs the catalog service. signer may be nil when image
// storage is not configured; uploads then fail with a dependency error.
func NewService(repo *Repository, tx db.TxRunner, categories categoryChecker, emitter outbox.Emitter, signer ImageSigner, media config.MediaConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category checker required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		categories: categories,
		emitter:    emitter,
		signer:     signer,
		media:      media,
		logg:       logg,
		now:        time.Now,
	}, nil
}

func (s *service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "product_id", id.String()), "catalog.views_increment_failed", err)
	} else {
		product.ViewsCount++
	}
	return FromModel(product, s.today()), nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	f := input.Filters
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price must be non-negative")
	}
	if f.MaxPrice != nil && f.MaxPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_price must be non-negative")
	}
	if f.DaysToExpiry != nil && *f.DaysToExpiry < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "days_to_expiry must be non-negative")
	}
	sort := input.Sort
	if sort == "" {
		sort = enums.ProductSortNewest
	}
	page := pagination.NewPage(input.Page.Number, input.Page.PerPage)

	today := s.today()
	rows, total, err := s.repo.List(ctx, f, sort, page, today)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductListResult{
		Products:   fromModels(rows, today),
		Pagination: page.MetaFor(total),
	}, nil
}

func (s *service) Featured(ctx context.Context, limit int) ([]ProductDTO, error) {
	today := s.today()
	rows, err := s.repo.Featured(ctx, clampDiscoveryLimit(limit), today, featuredWindowDays)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured products")
	}
	return fromModels(rows, today), nil
}

func (s *service) Trending(ctx context.Context, limit int) ([]ProductDTO, error) {
	rows, err := s.repo.Trending(ctx, clampDiscoveryLimit(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list trending products")
	}
	return fromModels(rows, s.today()), nil
}

func clampDiscoveryLimit(limit int) int {
	if limit <= 0 {
		return DefaultDiscoveryLimit
	}
	if limit > MaxDiscoveryLimit {
		return MaxDiscoveryLimit
	}
	return limit
}

// CreateProduct validates the listing and queues product.created with it.
func (s *service) CreateProduct(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CategoryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category_id is required")
	}
	expiry, err := s.parseExpiry(input.ExpiryDate)
	if err != nil {
		return nil, err
	}
	manufactured, err := parseOptionalDate("manufacturing_date", input.ManufacturingDate)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "piece"
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := &models.Product{
		VendorID:          vendorID,
		CategoryID:        input.CategoryID,
		Name:              name,
		Description:       input.Description,
		Brand:             input.Brand,
		SKU:               input.SKU,
		OriginalPrice:     input.OriginalPrice.Round(2),
		DiscountedPrice:   input.DiscountedPrice.Round(2),
		StockQuantity:     input.StockQuantity,
		Unit:              unit,
		ExpiryDate:        expiry,
		ManufacturingDate: manufactured,
		ImageURL:          input.ImageURL,
		IsActive:          isActive,
	}
	if err := validatePricing(product); err != nil {
		return nil, err
	}
	product.RefreshDiscount()

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductCreated,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Data: payloads.ProductCreatedEvent{
				ProductID:       product.ID,
				VendorID:        vendorID,
				CategoryID:      product.CategoryID,
				Name:            product.Name,
				DiscountedPrice: product.DiscountedPrice,
				ExpiryDate:      product.ExpiryDate.Format(dateLayout),
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": product.ID.String(),
		"vendor_id":  vendorID.String(),
	}), "catalog.product_created")

	return s.loadDTO(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, vendorID, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindOwned(ctx, vendorID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := s.applyUpdate(product, input); err != nil {
		return nil, err
	}
	if err := validatePricing(product); err != nil {
		return nil, err
	}
	product.RefreshDiscount()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.loadDTO(ctx, product.ID)
}

func (s *service) applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		product.Name = name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.SKU != nil {
		product.SKU = input.SKU
	}
	if input.CategoryID != nil {
		product.CategoryID = *input.CategoryID
	}
	if input.OriginalPrice != nil {
		product.OriginalPrice = input.OriginalPrice.Round(2)
	}
	if input.DiscountedPrice != nil {
		product.DiscountedPrice = input.DiscountedPrice.Round(2)
	}
	if input.StockQuantity != nil {
		product.StockQuantity = *input.StockQuantity
	}
	if input.Unit != nil {
		if unit := strings.TrimSpace(*input.Unit); unit != "" {
			product.Unit = unit
		}
	}
	if input.ExpiryDate != nil {
		expiry, err := s.parseExpiry(*input.ExpiryDate)
		if err != nil {
			return err
		}
		product.ExpiryDate = expiry
	}
	if input.ManufacturingDate != nil {
		manufactured, err := parseOptionalDate("manufacturing_date", input.ManufacturingDate)
		if err != nil {
			return err
		}
		product.ManufacturingDate = manufactured
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return nil
}

func (s *service) DeleteProduct(ctx context.Context, vendorID, productID uuid.UUID) error {
	if _, err := s.repo.FindOwned(ctx, vendorID, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Delete(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductDeleted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Data:          payloads.ProductDeletedEvent{ProductID: productID, VendorID: vendorID},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) ListVendorProducts(ctx context.Context, vendorID uuid.UUID, page pagination.Page) (*ProductListResult, error) {
	page = pagination.NewPage(page.Number, page.PerPage)
	rows, total, err := s.repo.ListByVendor(ctx, vendorID, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor products")
	}
	return &ProductListResult{
		Products:   fromModels(rows, s.today()),
		Pagination: page.MetaFor(total),
	}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// CreateImageUpload signs a PUT for products/<vendor>/<unix>_<name>.
func (s *service) CreateImageUpload(ctx context.Context, vendorID uuid.UUID, input ImageUploadInput) (*gcs.SignedUpload, error) {
	filename := path.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	if !s.extensionAllowed(ext) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file type not allowed").
			WithDetails(map[string]any{"allowed_extensions": s.media.AllowedExtensions})
	}
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > s.media.MaxUploadBytes() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d MB", s.media.MaxUploadMB))
	}
	if s.signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage is not configured")
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("products/%s/%d_%s", vendorID, s.now().Unix(), unsafeFilenameChars.ReplaceAllString(filename, "_"))

	upload, err := s.signer.SignedUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	return upload, nil
}

func (s *service) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.media.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(allowed), "."), ext) {
			return true
		}
	}
	return false
}

func (s *service) loadDTO(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product detail")
	}
	return FromModel(product, s.today()), nil
}

func (s *service) ensureCategory(ctx context.Context, id uuid.UUID) error {
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist")
	}
	return nil
}

func (s *service) parseExpiry(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expiry_date is required")
	}
	expiry, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expiry_date must be YYYY-MM-DD")
	}
	if expiry.Before(s.today()) {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "expiry_date cannot be in the past")
	}
	return expiry, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be YYYY-MM-DD")
	}
	return &parsed, nil
}

func validatePricing(p *models.Product) error {
	if !p.OriginalPrice.GreaterThan(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "original_price must be greater than zero")
	}
	if p.DiscountedPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "discounted_price must be non-negative")
	}
	if p.DiscountedPrice.GreaterThan(p.OriginalPrice) {
		return pkgerrors.New(pkgerrors.CodeValidation, "discounted_price cannot exceed original_price")
	}
	if p.StockQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock_quantity must be non-negative")
	}
	return nil
}
