package domain

import "time"

// StatusEvent is emitted after every persisted order transition.
type StatusEvent struct {
	OrderID   int         `json:"order_id"`
	Username  string      `json:"username"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	ChangedBy string      `json:"changed_by"`
	Timestamp time.Time   `json:"timestamp"`
}
