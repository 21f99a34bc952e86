package model

import "time"

// Item represents a stocked item type (quantity-based, not individual tracking).
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	MeasuringUnit string    `json:"measuringUnit"`
	Quantity      int       `json:"quantity"`
	IsRefundable  bool      `json:"isRefundable"`
	CurrentStatus string    `json:"currentStatus"`
	HasImage      bool      `json:"hasImage"`
	AddedBy       *string   `json:"addedBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Item statuses.
const (
	ItemStatusIn      = "in"
	ItemStatusOut     = "out"
	ItemStatusDeleted = "deleted"
)

// DefaultItemCategory is assigned to items added without a category.
const DefaultItemCategory = "stored"

// MeasuringUnits lists the accepted measuring units.
var MeasuringUnits = []string{
	"piece", "pack", "bundle", "carton", "crate", "roll", "litre",
	"kilogram", "gram", "meter", "box", "container", "bag", "set",
	"pair", "sheet", "tube", "unit", "pallet",
}

// IsMeasuringUnit reports whether unit is one of MeasuringUnits.
func IsMeasuringUnit(unit string) bool {
	for _, u := range MeasuringUnits {
		if u == unit {
			return true
		}
	}
	return false
}

// StockStatus returns the status an item with the given quantity should have.
// An item is out once nothing is left to release.
func StockStatus(quantity int) string {
	if quantity <= 0 {
		return ItemStatusOut
	}
	return ItemStatusIn
}
