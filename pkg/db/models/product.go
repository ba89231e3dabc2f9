package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a near-expiry listing published by a vendor.
type Product struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID           uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID         uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index"`
	Name               string          `gorm:"column:name;not null"`
	Description        *string         `gorm:"column:description"`
	Brand              *string         `gorm:"column:brand"`
	SKU                *string         `gorm:"column:sku"`
	OriginalPrice      decimal.Decimal `gorm:"column:original_price;type:numeric(12,2);not null"`
	DiscountedPrice    decimal.Decimal `gorm:"column:discounted_price;type:numeric(12,2);not null"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
	StockQuantity      int             `gorm:"column:stock_quantity;not null"`
	Unit               string          `gorm:"column:unit;not null"`
	ExpiryDate         time.Time       `gorm:"column:expiry_date;type:date;not null;index"`
	ManufacturingDate  *time.Time      `gorm:"column:manufacturing_date;type:date"`
	ImageURL           *string         `gorm:"column:image_url"`
	IsActive           bool            `gorm:"column:is_active;not null"`
	ViewsCount         int             `gorm:"column:views_count;not null"`
	SoldCount          int             `gorm:"column:sold_count;not null"`
	Category           *Category       `gorm:"foreignKey:CategoryID"`
	Vendor             *VendorProfile  `gorm:"foreignKey:VendorID"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

var hundred = decimal.NewFromInt(100)

// ComputeDiscountPercentage returns (original - discounted) / original * 100
// rounded to the column precision. A non-positive original yields zero.
func ComputeDiscountPercentage(original, discounted decimal.Decimal) decimal.Decimal {
	if !original.IsPositive() {
		return decimal.Zero
	}
	return original.Sub(discounted).Div(original).Mul(hundred).Round(2)
}

// RefreshDiscount recomputes the derived discount percentage.
func (p *Product) RefreshDiscount() {
	p.DiscountPercentage = ComputeDiscountPercentage(p.OriginalPrice, p.DiscountedPrice)
}

// Purchasable reports whether the product can be added to a cart at all.
func (p Product) Purchasable() bool {
	return p.IsActive && p.StockQuantity > 0
}
