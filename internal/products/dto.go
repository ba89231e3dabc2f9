package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
)

const dateLayout = "2006-01-02"

// ProductDTO is the public product shape.
type ProductDTO struct {
	ID                 uuid.UUID       `json:"id"`
	VendorID           uuid.UUID       `json:"vendor_id"`
	VendorName         string          `json:"vendor_name,omitempty"`
	CategoryID         uuid.UUID       `json:"category_id"`
	CategoryName       string          `json:"category_name,omitempty"`
	Name               string          `json:"name"`
	Description        *string         `json:"description,omitempty"`
	Brand              *string         `json:"brand,omitempty"`
	SKU                *string         `json:"sku,omitempty"`
	OriginalPrice      decimal.Decimal `json:"original_price"`
	DiscountedPrice    decimal.Decimal `json:"discounted_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StockQuantity      int             `json:"stock_quantity"`
	Unit               string          `json:"unit"`
	ExpiryDate         string          `json:"expiry_date"`
	ManufacturingDate  *string         `json:"manufacturing_date,omitempty"`
	DaysToExpiry       int             `json:"days_to_expiry"`
	ImageURL           *string         `json:"image_url,omitempty"`
	IsActive           bool            `json:"is_active"`
	ViewsCount         int             `json:"views_count"`
	SoldCount          int             `json:"sold_count"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ProductListResult is one page of products.
type ProductListResult struct {
	Products   []ProductDTO    `json:"products"`
	Pagination pagination.Meta `json:"pagination"`
}

// ListFilters are the browse knobs; nil means unfiltered.
type ListFilters struct {
	Search       string
	CategoryID   *uuid.UUID
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	DaysToExpiry *int
}

// ListProductsInput captures the inputs of the public browse endpoint.
type ListProductsInput struct {
	Filters ListFilters
	Sort    enums.ProductSort
	Page    pagination.Page
}

// CreateProductInput holds the vendor payload to create a product. Dates are
// YYYY-MM-DD.
type CreateProductInput struct {
	Name              string
	Description       *string
	Brand             *string
	SKU               *string
	CategoryID        uuid.UUID
	OriginalPrice     decimal.Decimal
	DiscountedPrice   decimal.Decimal
	StockQuantity     int
	Unit              string
	ExpiryDate        string
	ManufacturingDate *string
	ImageURL          *string
	IsActive          *bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name              *string
	Description       *string
	Brand             *string
	SKU               *string
	CategoryID        *uuid.UUID
	OriginalPrice     *decimal.Decimal
	DiscountedPrice   *decimal.Decimal
	StockQuantity     *int
	Unit              *string
	ExpiryDate        *string
	ManufacturingDate *string
	ImageURL          *string
	IsActive          *bool
}

// ImageUploadInput describes the file a vendor is about to upload.
type ImageUploadInput struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

func FromModel(p *models.Product, today time.Time) *ProductDTO {
	if p == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:                 p.ID,
		VendorID:           p.VendorID,
		CategoryID:         p.CategoryID,
		Name:               p.Name,
		Description:        p.Description,
		Brand:              p.Brand,
		SKU:                p.SKU,
		OriginalPrice:      p.OriginalPrice,
		DiscountedPrice:    p.DiscountedPrice,
		DiscountPercentage: p.DiscountPercentage,
		StockQuantity:      p.StockQuantity,
		Unit:               p.Unit,
		ExpiryDate:         p.ExpiryDate.Format(dateLayout),
		DaysToExpiry:       daysBetween(today, p.ExpiryDate),
		ImageURL:           p.ImageURL,
		IsActive:           p.IsActive,
		ViewsCount:         p.ViewsCount,
		SoldCount:          p.SoldCount,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.ManufacturingDate != nil {
		formatted := p.ManufacturingDate.Format(dateLayout)
		dto.ManufacturingDate = &formatted
	}
	if p.Category != nil {
		dto.CategoryName = p.Category.Name
	}
	if p.Vendor != nil {
		dto.VendorName = p.Vendor.BusinessName
	}
	return dto
}

func fromModels(rows []models.Product, today time.Time) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i], today))
	}
	return out
}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
