package models

import (
	"time"

	"sushi-system/internal/domain"
)

// StatusChange is one row of order_status_log.
type StatusChange struct {
	ID        int64              `json:"id"`
	OrderID   int                `json:"order_id"`
	Username  string             `json:"username"`
	OldStatus domain.OrderStatus `json:"old_status,omitempty"`
	NewStatus domain.OrderStatus `json:"new_status"`
	ChangedBy string             `json:"changed_by"`
	ChangedAt time.Time          `json:"changed_at"`
}

func FromEvent(ev domain.StatusEvent) StatusChange {
	return StatusChange{
		OrderID:   ev.OrderID,
		Username:  ev.Username,
		OldStatus: ev.OldStatus,
		NewStatus: ev.NewStatus,
		ChangedBy: ev.ChangedBy,
		ChangedAt: ev.Timestamp,
	}
}
