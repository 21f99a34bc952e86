package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/storekeeper/internal/notify"
	"github.com/erazemk/storekeeper/internal/store"
)

// ReleasesHandler handles release endpoints.
type ReleasesHandler struct {
	DB       *sql.DB
	Notifier *notify.Notifier
}

type createReleaseRequest struct {
	ItemID           string    `json:"itemId"`
	QtyReleased      int       `json:"qtyReleased"`
	ReleasedTo       string    `json:"releasedTo"`
	Category         string    `json:"category"`
	Reason           string    `json:"reason"`
	Remarks          string    `json:"remarks"`
	ExpectedReturnBy *dateTime `json:"expectedReturnBy"`
}

type approvalRequest struct {
	ApprovalStatus string `json:"approvalStatus"`
}

// Create handles POST /api/release and POST /api/item/release/{itemId}.
func (h *ReleasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReleaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if itemID := r.PathValue("itemId"); itemID != "" {
		req.ItemID = itemID
	}
	if req.ItemID == "" {
		jsonError(w, http.StatusBadRequest, "itemId required")
		return
	}

	claims := GetClaims(r.Context())
	rel, err := store.CreateRelease(r.Context(), h.DB, store.ReleaseInput{
		ItemID:           req.ItemID,
		Qty:              req.QtyReleased,
		ReleasedTo:       req.ReleasedTo,
		ReleasedBy:       claims.UserID,
		Category:         req.Category,
		Reason:           req.Reason,
		Remarks:          req.Remarks,
		ExpectedReturnBy: req.ExpectedReturnBy.ptr(),
	})
	if err != nil {
		storeError(w, err, "create release")
		return
	}

	slog.Info("release created",
		"user", claims.Email,
		"release", rel.ID,
		"item", rel.ItemID,
		"qty", rel.QtyReleased,
		"to", rel.ReleasedTo,
		"category", rel.Category,
	)
	checkLowStock(r, h.Notifier, rel.ItemID)
	jsonResponse(w, http.StatusCreated, rel)
}

// List handles GET /api/release.
func (h *ReleasesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ReleaseFilter{
		ApprovalStatus: q.Get("approvalStatus"),
		ItemID:         q.Get("itemId"),
		ReleasedBy:     q.Get("releasedBy"),
		ReturnableOnly: q.Get("returnable") == "true",
		Overdue:        q.Get("overdue") == "true",
	}

	var err error
	if f.From, err = parseDateParam(q.Get("from")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	if f.To, err = parseUntilParam(q.Get("to")); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid to date")
		return
	}

	releases, err := store.ListReleases(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, err, "list releases")
		return
	}
	jsonResponse(w, http.StatusOK, releases)
}

// Get handles GET /api/release/{id}.
func (h *ReleasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	rel, err := store.GetRelease(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get release")
		return
	}
	jsonResponse(w, http.StatusOK, rel)
}

// SetStatus handles PATCH /api/release/{id}/status.
func (h *ReleasesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req approvalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	rel, err := store.SetApproval(r.Context(), h.DB, id, req.ApprovalStatus, claims.UserID)
	if err != nil {
		storeError(w, err, "update release status")
		return
	}

	slog.Info("release status changed", "user", claims.Email, "release", rel.ID, "status", rel.ApprovalStatus)
	jsonResponse(w, http.StatusOK, rel)
}

// parseDateParam parses an optional date query parameter.
func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	var d dateTime
	if err := d.UnmarshalJSON([]byte(s)); err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

// parseUntilParam parses an exclusive upper bound. A bare date covers that
// whole day, so "to=2026-10-18" ends at midnight on the 19th.
func parseUntilParam(s string) (time.Time, error) {
	if day, err := time.Parse(time.DateOnly, s); err == nil {
		return day.AddDate(0, 0, 1), nil
	}
	return parseDateParam(s)
}
