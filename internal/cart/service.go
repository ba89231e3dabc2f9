package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the per-user basket.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartItemDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartItemDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	items, err := s.repo.ListWithProducts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	out := &CartDTO{Items: make([]CartItemDTO, 0, len(items)), Total: decimal.Zero}
	for i := range items {
		dto := itemFromModel(&items[i])
		out.Total = out.Total.Add(dto.Subtotal)
		out.Items = append(out.Items, dto)
	}
	out.Count = len(out.Items)
	return out, nil
}

// AddItem merges into an existing line by summing quantities.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartItemDTO, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Purchasable() {
		return nil, unavailable(product)
	}
	if quantity > product.StockQuantity {
		return nil, insufficientStock(product)
	}

	item, err := s.merge(ctx, userID, product, quantity)
	if err != nil && db.IsUniqueViolation(err, "cart_items_user_product_key") {
		// a concurrent add created the line first
		item, err = s.merge(ctx, userID, product, quantity)
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}

	item.Product = product
	dto := itemFromModel(item)
	return &dto, nil
}

func (s *service) merge(ctx context.Context, userID uuid.UUID, product *models.Product, quantity int) (*models.CartItem, error) {
	existing, err := s.repo.FindLine(ctx, userID, product.ID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if merged > product.StockQuantity {
			return nil, insufficientStock(product)
		}
		if err := s.repo.UpdateQuantity(ctx, existing.ID, merged); err != nil {
			return nil, err
		}
		existing.Quantity = merged
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		item := &models.CartItem{UserID: userID, ProductID: product.ID, Quantity: quantity}
		if err := s.repo.Create(ctx, item); err != nil {
			return nil, err
		}
		return item, nil
	default:
		return nil, err
	}
}

// UpdateItem sets the quantity; zero or less removes the line and returns nil.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartItemDTO, error) {
	item, err := s.repo.FindOwned(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if quantity <= 0 {
		if err := s.repo.DeleteOwned(ctx, userID, itemID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		return nil, nil
	}

	product := item.Product
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeProductUnavailable, "product is no longer available")
	}
	if quantity > product.StockQuantity {
		return nil, insufficientStock(product)
	}
	if err := s.repo.UpdateQuantity(ctx, item.ID, quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	item.Quantity = quantity
	dto := itemFromModel(item)
	return &dto, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := s.repo.DeleteOwned(ctx, userID, itemID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return nil
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.ClearForUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func unavailable(product *models.Product) error {
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, fmt.Sprintf("%s is not available", product.Name)).
		WithDetails(map[string]any{"product_id": product.ID})
}

func insufficientStock(product *models.Product) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d items available", product.StockQuantity)).
		WithDetails(map[string]any{"product_id": product.ID, "available": product.StockQuantity})
}
