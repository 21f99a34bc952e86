package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/storekeeper/internal/imaging"
	"github.com/erazemk/storekeeper/internal/model"
	"github.com/erazemk/storekeeper/internal/notify"
	"github.com/erazemk/storekeeper/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB       *sql.DB
	Notifier *notify.Notifier
	Images   imaging.Processor
}

type createItemRequest struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	MeasuringUnit string `json:"measuringUnit"`
	Quantity      int    `json:"quantity"`
	IsRefundable  *bool  `json:"isRefundable"`
}

type updateItemRequest struct {
	Name          *string `json:"name"`
	Category      *string `json:"category"`
	MeasuringUnit *string `json:"measuringUnit"`
	Quantity      *int    `json:"quantity"`
	IsRefundable  *bool   `json:"isRefundable"`
}

type itemDetail struct {
	Item     *model.Item     `json:"item"`
	Releases []model.Release `json:"releases"`
	Returns  []model.Return  `json:"returns"`
}

// List handles GET /api/item/get.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{
		Status:         q.Get("status"),
		Query:          q.Get("q"),
		RefundableOnly: q.Get("refundable") == "true",
	})
	if err != nil {
		storeError(w, err, "list items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Returnable handles GET /api/items/returnable.
func (h *ItemsHandler) Returnable(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListItems(r.Context(), h.DB, store.ItemFilter{RefundableOnly: true})
	if err != nil {
		storeError(w, err, "list returnable items")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"items": items})
}

// Create handles POST /api/item/add.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.CreateItem(r.Context(), h.DB, store.ItemInput{
		Name:          req.Name,
		Category:      req.Category,
		MeasuringUnit: req.MeasuringUnit,
		Quantity:      req.Quantity,
		IsRefundable:  req.IsRefundable,
		AddedBy:       &claims.UserID,
	})
	if err != nil {
		storeError(w, err, "create item")
		return
	}

	slog.Info("item created", "user", claims.Email, "item", item.ID, "name", item.Name, "quantity", item.Quantity)
	checkLowStock(r, h.Notifier, item.ID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/item/{id}. The item comes with its releases and returns.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "get item")
		return
	}

	releases, err := store.ListReleases(r.Context(), h.DB, store.ReleaseFilter{ItemID: id})
	if err != nil {
		storeError(w, err, "list item releases")
		return
	}
	returns, err := store.ListReturns(r.Context(), h.DB, store.ReturnFilter{ItemID: id})
	if err != nil {
		storeError(w, err, "list item returns")
		return
	}

	jsonResponse(w, http.StatusOK, itemDetail{Item: item, Releases: releases, Returns: returns})
}

// Update handles PUT /api/item/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := store.UpdateItem(r.Context(), h.DB, id, store.ItemUpdate{
		Name:          req.Name,
		Category:      req.Category,
		MeasuringUnit: req.MeasuringUnit,
		Quantity:      req.Quantity,
		IsRefundable:  req.IsRefundable,
	})
	if err != nil {
		storeError(w, err, "update item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item updated", "user", claims.Email, "item", item.ID, "quantity", item.Quantity)
	if req.Quantity != nil {
		checkLowStock(r, h.Notifier, item.ID)
	}
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/item/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Email, "item", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/item/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	limit := h.Images.MaxBytes
	if limit <= 0 {
		limit = imaging.DefaultMaxBytes
	}
	// Leave room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))

	if err := r.ParseMultipartForm(limit); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := h.Images.Process(file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeValidation, err.Error())
		return
	case err != nil:
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.MIME); err != nil {
		storeError(w, err, "save image")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item image uploaded", "user", claims.Email, "item", id, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/item/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetItemImage(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// checkLowStock raises a low-stock alert after a stock change. Failures are
// logged; the stock change itself has already committed.
func checkLowStock(r *http.Request, n *notify.Notifier, itemID string) {
	if n == nil {
		return
	}
	if _, err := n.CheckLowStock(r.Context(), itemID); err != nil {
		slog.Error("low stock check failed", "item", itemID, "error", err)
	}
}
