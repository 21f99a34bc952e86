package model

import "time"

// Release records units of an item checked out to a recipient.
type Release struct {
	ID               string     `json:"id"`
	ItemID           string     `json:"itemId"`
	QtyReleased      int        `json:"qtyReleased"`
	ReleasedTo       string     `json:"releasedTo"`
	ReleasedBy       *string    `json:"releasedBy,omitempty"`
	Category         string     `json:"category"`
	IsReturnable     bool       `json:"isReturnable"`
	Reason           string     `json:"reason"`
	Remarks          string     `json:"remarks,omitempty"`
	ExpectedReturnBy *time.Time `json:"expectedReturnBy,omitempty"`
	ApprovalStatus   string     `json:"approvalStatus"`
	ApprovedBy       *string    `json:"approvedBy,omitempty"`
	ReturnStatus     string     `json:"returnStatus"`
	QtyReturned      int        `json:"qtyReturned"`
	QtyRemaining     int        `json:"qtyRemaining"`
	Overdue          bool       `json:"overdue"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`

	// Joined fields (not always populated).
	ItemName       string `json:"itemName,omitempty"`
	MeasuringUnit  string `json:"measuringUnit,omitempty"`
	ReleasedByName string `json:"releasedByName,omitempty"`
}

// Release categories.
const (
	CategoryRepair   = "repair"
	CategoryRefill   = "refill"
	CategoryReplace  = "replace"
	CategoryBorrow   = "borrow"
	CategoryConsumed = "consumed"
)

// Approval statuses.
const (
	ApprovalPending   = "pending"
	ApprovalApproved  = "approved"
	ApprovalCancelled = "cancelled"
)

// Return statuses.
const (
	ReturnStatusNone    = "not returned"
	ReturnStatusPartial = "partially returned"
	ReturnStatusFull    = "fully returned"
)

// IsReleaseCategory reports whether category is a known release category.
func IsReleaseCategory(category string) bool {
	switch category {
	case CategoryRepair, CategoryRefill, CategoryReplace, CategoryBorrow, CategoryConsumed:
		return true
	}
	return false
}

// IsReturnableCategory reports whether releases of this category expect the
// units to come back. Consumed releases never do.
func IsReturnableCategory(category string) bool {
	switch category {
	case CategoryRepair, CategoryRefill, CategoryReplace, CategoryBorrow:
		return true
	}
	return false
}

// DeriveReturnStatus is the single source of a release's return status.
func DeriveReturnStatus(qtyReleased, qtyReturned int) string {
	switch {
	case qtyReturned > 0 && qtyReturned >= qtyReleased:
		return ReturnStatusFull
	case qtyReturned > 0:
		return ReturnStatusPartial
	default:
		return ReturnStatusNone
	}
}

// Derive fills the fields computed from stored quantities and dates.
func (r *Release) Derive(now time.Time) {
	r.QtyRemaining = r.QtyReleased - r.QtyReturned
	r.ReturnStatus = DeriveReturnStatus(r.QtyReleased, r.QtyReturned)
	r.Overdue = r.IsReturnable &&
		r.ApprovalStatus == ApprovalApproved &&
		r.QtyRemaining > 0 &&
		r.ExpectedReturnBy != nil &&
		r.ExpectedReturnBy.Before(now)
}
