package model

import "time"

// Schedule is a planned maintenance task for an item.
type Schedule struct {
	ID                     string     `json:"id"`
	ItemID                 string     `json:"itemId"`
	Category               string     `json:"category"`
	Quantity               int        `json:"quantity"`
	ScheduledDate          time.Time  `json:"scheduledDate"`
	ExpectedCompletionDate *time.Time `json:"expectedCompletionDate,omitempty"`
	Remarks                string     `json:"remarks,omitempty"`
	ReminderAt             time.Time  `json:"reminderAt"`
	Reminded               bool       `json:"reminded"`
	CreatedBy              *string    `json:"createdBy,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`

	// Joined fields (not always populated).
	ItemName string `json:"itemName,omitempty"`
}

// ReminderTime picks when a schedule reminder fires: an explicit time wins,
// otherwise the scheduled date minus the given offset.
func ReminderTime(scheduled time.Time, explicit *time.Time, before time.Duration) time.Time {
	if explicit != nil && !explicit.IsZero() {
		return *explicit
	}
	if before > 0 {
		return scheduled.Add(-before)
	}
	return scheduled
}
