package model

import "time"

// Return records units of a release handed back.
type Return struct {
	ID               string    `json:"id"`
	ReleaseID        string    `json:"releaseId"`
	ItemID           string    `json:"itemId"`
	ReturnedBy       string    `json:"returnedBy"`
	ReturnedByEmail  string    `json:"returnedByEmail,omitempty"`
	QuantityReturned int       `json:"quantityReturned"`
	Condition        string    `json:"condition"`
	Remarks          string    `json:"remarks,omitempty"`
	Credited         bool      `json:"credited"`
	ProcessedBy      *string   `json:"processedBy,omitempty"`
	DateReturned     time.Time `json:"dateReturned"`

	// Joined fields (not always populated).
	ItemName      string `json:"itemName,omitempty"`
	MeasuringUnit string `json:"measuringUnit,omitempty"`
}

// Return conditions.
const (
	ConditionGood    = "good"
	ConditionDamaged = "damaged"
	ConditionExpired = "expired"
	ConditionLost    = "lost"
	ConditionOther   = "other"
)

// IsCondition reports whether condition is a known return condition.
func IsCondition(condition string) bool {
	switch condition {
	case ConditionGood, ConditionDamaged, ConditionExpired, ConditionLost, ConditionOther:
		return true
	}
	return false
}

// IsCreditable reports whether returned units in this condition go back to
// available stock. Damaged, expired and lost units are reconciled against the
// release but never restocked.
func IsCreditable(condition string) bool {
	return condition == ConditionGood || condition == ConditionOther
}

// DefaultRemarks returns the remark recorded when none was given.
func DefaultRemarks(condition string) string {
	switch condition {
	case ConditionGood:
		return "Returned in good condition"
	case ConditionDamaged:
		return "Returned damaged"
	case ConditionExpired:
		return "Returned expired"
	case ConditionLost:
		return "Reported lost"
	default:
		return ""
	}
}
