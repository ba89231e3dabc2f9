package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplus-backend/internal/cart"
	product "github.com/angelmondragon/surplus-backend/internal/products"
	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/db/models"
	"github.com/angelmondragon/surplus-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplus-backend/pkg/errors"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
	"github.com/angelmondragon/surplus-backend/pkg/outbox"
	"github.com/angelmondragon/surplus-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/surplus-backend/pkg/pagination"
	"github.com/angelmondragon/surplus-backend/pkg/tracing"
)

var tracer = tracing.Tracer("surplus/orders")

type addressLoader interface {
	FindOwned(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

// Service is the order engine: checkout, cancellation, reads and vendor
// fulfilment steps.
type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, input ListOrdersInput) (*OrderList, error)

	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, input ListOrdersInput) (*OrderList, error)
	AdvanceStatus(ctx context.Context, vendorID, orderID uuid.UUID, target enums.OrderStatus) (*OrderDTO, error)
}

// Deps groups the collaborators of the order engine.
type Deps struct {
	Repo      Repository
	Cart      cart.CartRepository
	Products  *product.Repository
	Addresses addressLoader
	Tx        db.TxRunner
	Outbox    outbox.Emitter
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	cart      cart.CartRepository
	products  *product.Repository
	addresses addressLoader
	tx        db.TxRunner
	outbox    outbox.Emitter
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds the order engine. Metrics are optional.
func NewService(deps Deps) (Service, error) {
	switch {
	case deps.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case deps.Cart == nil:
		return nil, fmt.Errorf("cart repository required")
	case deps.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case deps.Addresses == nil:
		return nil, fmt.Errorf("address loader required")
	case deps.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case deps.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      deps.Repo,
		cart:      deps.Cart,
		products:  deps.Products,
		addresses: deps.Addresses,
		tx:        deps.Tx,
		outbox:    deps.Outbox,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		now:       time.Now,
	}, nil
}

// CreateOrder converts the caller's cart into an order. Cart removal, stock
// decrements, the order rows and the order.created event commit together.
func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (_ *OrderDTO, err error) {
	ctx, span := tracer.Start(ctx, "orders.create")
	defer func() {
		tracing.End(span, err)
		if err != nil {
			s.metrics.IncCheckoutFailure(string(failureReason(err)))
		}
	}()

	method := input.PaymentMethod
	if method == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method is required")
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method must be one of cod, card, upi")
	}
	span.SetAttributes(attribute.String("payment_method", string(method)))

	shipping, err := s.resolveShipping(ctx, userID, input)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber:     NewOrderNumber(s.now()),
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		DiscountAmount:  decimal.Zero,
		ShippingName:    shipping.Name,
		ShippingPhone:   shipping.Phone,
		ShippingLine1:   shipping.Line1,
		ShippingLine2:   shipping.Line2,
		ShippingCity:    shipping.City,
		ShippingState:   shipping.State,
		ShippingPincode: shipping.Pincode,
		Notes:           input.Notes,
	}
	if method.ConfirmsOnCreate() {
		order.Status = enums.OrderStatusConfirmed
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cart.WithTx(tx)
		products := s.products.WithTx(tx)

		lines, err := cartRepo.ListWithProducts(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load cart")
		}
		if len(lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		subtotal := decimal.Zero
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			p := line.Product
			if p == nil || !p.IsActive || p.StockQuantity < line.Quantity {
				return productUnavailable(p)
			}
			lineTotal := cart.LineTotal(p.DiscountedPrice, line.Quantity)
			subtotal = subtotal.Add(lineTotal)
			productID := p.ID
			items = append(items, models.OrderItem{
				ProductID:    &productID,
				ProductName:  p.Name,
				ProductImage: p.ImageURL,
				Quantity:     line.Quantity,
				UnitPrice:    p.DiscountedPrice,
				TotalPrice:   lineTotal,
			})
		}

		for _, line := range lines {
			ok, err := products.ApplySale(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			if !ok {
				return productUnavailable(line.Product)
			}
		}

		totals := ComputeTotals(subtotal)
		order.TotalAmount = totals.Subtotal
		order.ShippingAmount = totals.Shipping
		order.TaxAmount = totals.Tax
		order.FinalAmount = totals.Final
		order.Items = items

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "orders_order_number_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}
		if err := cartRepo.ClearForUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear cart")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				UserID:        userID,
				Status:        order.Status,
				PaymentMethod: order.PaymentMethod,
				FinalAmount:   order.FinalAmount,
				Items:         eventLines(order.Items),
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	s.metrics.IncCreated(string(method))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      userID.String(),
		"final_amount": order.FinalAmount.String(),
	}), "order.created")

	return FromModel(order), nil
}

func (s *service) resolveShipping(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (ShippingInput, error) {
	if input.AddressID != nil {
		addr, err := s.addresses.FindOwned(ctx, userID, *input.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ShippingInput{}, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return ShippingInput{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		return ShippingInput{
			Name:    addr.FullName,
			Phone:   addr.Phone,
			Line1:   addr.AddressLine1,
			Line2:   addr.AddressLine2,
			City:    addr.City,
			State:   addr.State,
			Pincode: addr.Pincode,
		}, nil
	}

	in := input.Shipping
	required := []struct {
		field string
		value *string
	}{
		{"shipping_name", &in.Name},
		{"shipping_phone", &in.Phone},
		{"shipping_address_line1", &in.Line1},
		{"shipping_city", &in.City},
		{"shipping_state", &in.State},
		{"shipping_pincode", &in.Pincode},
	}
	for _, r := range required {
		*r.value = strings.TrimSpace(*r.value)
		if *r.value == "" {
			return ShippingInput{}, pkgerrors.New(pkgerrors.CodeValidation, r.field+" is required")
		}
	}
	return in, nil
}

// CancelOrder hands stock back for every line whose product still exists.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (_ *OrderDTO, err error) {
	ctx, span := tracer.Start(ctx, "orders.cancel")
	defer func() { tracing.End(span, err) }()

	var cancelled *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOwned(ctx, userID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}
		if !order.Status.Cancellable() {
			return pkgerrors.New(pkgerrors.CodeOrderNotCancelable, fmt.Sprintf("order is %s and cannot be cancelled", order.Status))
		}

		previous := order.Status
		ok, err := repo.TransitionStatus(ctx, order.ID, previous, enums.OrderStatusCancelled, nil)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, retry")
		}

		products := s.products.WithTx(tx)
		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := products.RevertSale(ctx, *item.ProductID, item.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: restore stock")
			}
		}

		order.Status = enums.OrderStatusCancelled
		cancelled = order
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: enums.RoleCustomer},
			Data: payloads.OrderCancelledEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         userID,
				PreviousStatus: previous,
				Items:          eventLines(order.Items),
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
	}

	s.metrics.IncCancelled()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": cancelled.ID.String(),
		"user_id":  userID.String(),
	}), "order.cancelled")
	return FromModel(cancelled), nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindOwned(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return FromModel(order), nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, input ListOrdersInput) (*OrderList, error) {
	query, err := buildListQuery(input)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListForUser(ctx, userID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return toList(rows, next), nil
}

func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, input ListOrdersInput) (*OrderList, error) {
	query, err := buildListQuery(input)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListForVendor(ctx, vendorID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return toList(rows, next), nil
}

// AdvanceStatus moves an order one fulfilment step forward for a vendor with
// lines in it. Delivering a cash-on-delivery order settles its payment.
func (s *service) AdvanceStatus(ctx context.Context, vendorID, orderID uuid.UUID, target enums.OrderStatus) (_ *OrderDTO, err error) {
	ctx, span := tracer.Start(ctx, "orders.advance_status")
	defer func() { tracing.End(span, err) }()

	if !target.IsValid() || target == enums.OrderStatusPending || target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of confirmed, shipped, delivered")
	}

	var updated *models.Order
	var from enums.OrderStatus
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		owns, err := repo.VendorHasItems(ctx, vendorID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check vendor lines")
		}
		if !owns {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order")
		}

		from = order.Status
		if !from.CanAdvanceTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, target)).
				WithDetails(map[string]any{"from": from, "to": target})
		}

		var payment *enums.PaymentStatus
		if target == enums.OrderStatusDelivered && order.PaymentMethod == enums.PaymentMethodCOD {
			completed := enums.PaymentStatusCompleted
			payment = &completed
			order.PaymentStatus = completed
		}
		ok, err := repo.TransitionStatus(ctx, orderID, from, target, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently, retry")
		}
		order.Status = target
		updated = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:       orderID,
				OrderNumber:   order.OrderNumber,
				VendorID:      vendorID,
				From:          from,
				To:            target,
				PaymentStatus: order.PaymentStatus,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order status")
	}

	s.metrics.IncTransition(string(target))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":  orderID.String(),
		"vendor_id": vendorID.String(),
		"from":      string(from),
		"to":        string(target),
	}), "order.status_changed")
	return FromModel(updated), nil
}

func buildListQuery(input ListOrdersInput) (listQuery, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return listQuery{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return listQuery{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	return listQuery{Limit: input.Limit, Cursor: cursor, Status: input.Status}, nil
}

func toList(rows []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: fromModels(rows)}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

func productUnavailable(p *models.Product) error {
	if p == nil {
		return pkgerrors.New(pkgerrors.CodeProductUnavailable, "a product in your cart is no longer available")
	}
	return pkgerrors.New(pkgerrors.CodeProductUnavailable, fmt.Sprintf("Product %s is not available", p.Name)).
		WithDetails(map[string]any{"product_id": p.ID, "product_name": p.Name})
}

func eventLines(items []models.OrderItem) []payloads.OrderLine {
	out := make([]payloads.OrderLine, 0, len(items))
	for _, item := range items {
		out = append(out, payloads.OrderLine{
			ProductID: item.ProductID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return out
}

func failureReason(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeInternal
}
