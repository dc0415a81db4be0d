package domain

import "fmt"

// OrderStatus tracks an order from submission to delivery.
type OrderStatus string

const (
	StatusSubmitted  OrderStatus = "SUBMITTED"
	StatusReceived   OrderStatus = "RECEIVED"
	StatusDelivering OrderStatus = "DELIVERING"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

var validOrderStatuses = []OrderStatus{
	StatusSubmitted,
	StatusReceived,
	StatusDelivering,
	StatusDelivered,
	StatusCancelled,
}

// allowedTransitions lists every edge of the lifecycle. DELIVERING -> RECEIVED
// only happens when a courier is stopped mid-delivery and hands the order back.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusSubmitted:  {StatusReceived, StatusCancelled},
	StatusReceived:   {StatusDelivering, StatusCancelled},
	StatusDelivering: {StatusDelivered, StatusReceived},
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	s := OrderStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid order status %q", value)
	}
	return s, nil
}
