package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
)

// ProductSummary is the live product view attached to a cart line.
type ProductSummary struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	StockQuantity   int             `json:"stock_quantity"`
	Unit            string          `json:"unit"`
	ImageURL        *string         `json:"image_url,omitempty"`
	IsActive        bool            `json:"is_active"`
}

type CartItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   *ProductSummary `json:"product,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// CartDTO totals are computed from live prices on every read.
type CartDTO struct {
	Items []CartItemDTO   `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

func itemFromModel(item *models.CartItem) CartItemDTO {
	dto := CartItemDTO{
		ID:        item.ID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Subtotal:  decimal.Zero,
		CreatedAt: item.CreatedAt,
	}
	if p := item.Product; p != nil {
		dto.Product = &ProductSummary{
			ID:              p.ID,
			Name:            p.Name,
			DiscountedPrice: p.DiscountedPrice,
			OriginalPrice:   p.OriginalPrice,
			StockQuantity:   p.StockQuantity,
			Unit:            p.Unit,
			ImageURL:        p.ImageURL,
			IsActive:        p.IsActive,
		}
		dto.Subtotal = LineTotal(p.DiscountedPrice, item.Quantity)
	}
	return dto
}

// LineTotal is price × quantity at cent precision.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
