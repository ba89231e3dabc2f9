package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

// ShippingInput is the destination typed at checkout.
type ShippingInput struct {
	Name    string
	Phone   string
	Line1   string
	Line2   *string
	City    string
	State   string
	Pincode string
}

// CreateOrderInput either names a saved address or carries a typed one.
type CreateOrderInput struct {
	PaymentMethod enums.PaymentMethod
	AddressID     *uuid.UUID
	Shipping      ShippingInput
	Notes         *string
}

// ListOrdersInput drives both the buyer and vendor listings.
type ListOrdersInput struct {
	Limit  int
	Cursor string
	Status *enums.OrderStatus
}

type ShippingAddressDTO struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	Pincode      string  `json:"pincode"`
}

type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    *uuid.UUID      `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage *string         `json:"product_image,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	OrderNumber     string              `json:"order_number"`
	Status          enums.OrderStatus   `json:"status"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	ShippingAmount  decimal.Decimal     `json:"shipping_amount"`
	TaxAmount       decimal.Decimal     `json:"tax_amount"`
	DiscountAmount  decimal.Decimal     `json:"discount_amount"`
	FinalAmount     decimal.Decimal     `json:"final_amount"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	ShippingAddress ShippingAddressDTO  `json:"shipping_address"`
	Notes           *string             `json:"notes,omitempty"`
	Items           []OrderItemDTO      `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderList is one cursor page, newest first.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		TotalAmount:    o.TotalAmount,
		ShippingAmount: o.ShippingAmount,
		TaxAmount:      o.TaxAmount,
		DiscountAmount: o.DiscountAmount,
		FinalAmount:    o.FinalAmount,
		PaymentMethod:  o.PaymentMethod,
		PaymentStatus:  o.PaymentStatus,
		ShippingAddress: ShippingAddressDTO{
			Name:         o.ShippingName,
			Phone:        o.ShippingPhone,
			AddressLine1: o.ShippingLine1,
			AddressLine2: o.ShippingLine2,
			City:         o.ShippingCity,
			State:        o.ShippingState,
			Pincode:      o.ShippingPincode,
		},
		Notes:     o.Notes,
		Items:     make([]OrderItemDTO, 0, len(o.Items)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TotalPrice:   item.TotalPrice,
		})
	}
	return dto
}

func fromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
