package enums

// OrderStatus tracks fulfilment. Vendors move an order one step forward at a
// time; cancellation is possible from any non-terminal state.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderForwardSteps = map[OrderStatus]OrderStatus{
	OrderStatusPending:   OrderStatusConfirmed,
	OrderStatusConfirmed: OrderStatusShipped,
	OrderStatusShipped:   OrderStatusDelivered,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return member(orderStatuses, s) }

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) Cancellable() bool {
	return s.IsValid() && !s.IsTerminal()
}

func (s OrderStatus) NextStep() (OrderStatus, bool) {
	next, ok := orderForwardSteps[s]
	return next, ok
}

// CanAdvanceTo is true only for the single forward step after s.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) bool {
	next, ok := s.NextStep()
	return ok && next == target
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return lookup(orderStatuses, value, "order status")
}
