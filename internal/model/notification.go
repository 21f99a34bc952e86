package model

import "time"

// Notification is an entry in the admin notification log.
type Notification struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Quantity   *int      `json:"quantity,omitempty"`
	ItemID     *string   `json:"itemId,omitempty"`
	ReleaseID  *string   `json:"releaseId,omitempty"`
	ScheduleID *string   `json:"scheduleId,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Notification kinds.
const (
	NotificationLowStock = "low_stock"
	NotificationOverdue  = "overdue"
	NotificationReminder = "reminder"
	NotificationInfo     = "info"
)
