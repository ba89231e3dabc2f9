package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/pkg/enums"
)

// OrderLine is the per-product slice of an order event.
type OrderLine struct {
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderCreatedEvent is emitted once the order and its stock decrements commit.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id" validate:"required"`
	OrderNumber   string              `json:"order_number" validate:"required"`
	UserID        uuid.UUID           `json:"user_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	FinalAmount   decimal.Decimal     `json:"final_amount"`
	Items         []OrderLine         `json:"items"`
}

// OrderCancelledEvent carries the stock that was handed back.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID         `json:"order_id" validate:"required"`
	OrderNumber    string            `json:"order_number" validate:"required"`
	UserID         uuid.UUID         `json:"user_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Items          []OrderLine       `json:"items"`
}

// OrderStatusChangedEvent is emitted by vendor fulfilment steps.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id" validate:"required"`
	OrderNumber   string              `json:"order_number" validate:"required"`
	VendorID      uuid.UUID           `json:"vendor_id"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to" validate:"required"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}

// ProductCreatedEvent announces a new listing to catalog consumers.
type ProductCreatedEvent struct {
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	VendorID        uuid.UUID       `json:"vendor_id"`
	CategoryID      uuid.UUID       `json:"category_id"`
	Name            string          `json:"name"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	ExpiryDate      string          `json:"expiry_date"`
}

// ProductDeletedEvent lets consumers drop cached listings.
type ProductDeletedEvent struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VendorID  uuid.UUID `json:"vendor_id"`
}
