package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/storekeeper/internal/model"
	"github.com/erazemk/storekeeper/internal/store"
)

// ReturnsHandler handles return processing endpoints.
type ReturnsHandler struct {
	DB *sql.DB
}

type submitReturnRequest struct {
	ReturnedBy       string `json:"returnedBy"`
	ReturnedByEmail  string `json:"returnedByEmail"`
	QuantityReturned int    `json:"quantityReturned"`
	Condition        string `json:"condition"`
	Remarks          string `json:"remarks"`
}

type submitReturnResponse struct {
	Release *model.Release `json:"release"`
	Return  *model.Return  `json:"return"`
}

type returnHistory struct {
	Release *model.Release `json:"release"`
	Returns []model.Return `json:"returns"`
}

// Submit handles POST /api/return/release/{releaseId}.
func (h *ReturnsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitReturnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	rel, ret, err := store.SubmitReturn(r.Context(), h.DB, store.ReturnInput{
		ReleaseID:        r.PathValue("releaseId"),
		QuantityReturned: req.QuantityReturned,
		ReturnedBy:       req.ReturnedBy,
		ReturnedByEmail:  req.ReturnedByEmail,
		Condition:        req.Condition,
		Remarks:          req.Remarks,
		ProcessedBy:      claims.UserID,
	})
	if err != nil {
		storeError(w, err, "submit return")
		return
	}

	slog.Info("return processed",
		"user", claims.Email,
		"release", rel.ID,
		"return", ret.ID,
		"qty", ret.QuantityReturned,
		"condition", ret.Condition,
		"credited", ret.Credited,
		"status", rel.ReturnStatus,
	)
	jsonResponse(w, http.StatusCreated, submitReturnResponse{Release: rel, Return: ret})
}

// List handles GET /api/return.
func (h *ReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ReturnFilter{
		ReleaseID:   q.Get("releaseId"),
		ItemID:      q.Get("itemId"),
		ProcessedBy: q.Get("processedBy"),
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

	returns, err := store.ListReturns(r.Context(), h.DB, f)
	if err != nil {
		storeError(w, err, "list returns")
		return
	}
	jsonResponse(w, http.StatusOK, returns)
}

// History handles GET /api/return/release/{releaseId}.
func (h *ReturnsHandler) History(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("releaseId")

	rel, err := store.GetRelease(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get release")
		return
	}
	returns, err := store.ListReturns(r.Context(), h.DB, store.ReturnFilter{ReleaseID: id})
	if err != nil {
		storeError(w, err, "list returns")
		return
	}

	jsonResponse(w, http.StatusOK, returnHistory{Release: rel, Returns: returns})
}
