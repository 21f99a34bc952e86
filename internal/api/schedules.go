package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/storekeeper/internal/store"
)

// SchedulesHandler handles maintenance schedule endpoints.
type SchedulesHandler struct {
	DB *sql.DB
}

type createScheduleRequest struct {
	ItemID                 string    `json:"itemId"`
	Category               string    `json:"category"`
	Quantity               int       `json:"quantity"`
	ScheduledDate          *dateTime `json:"scheduledDate"`
	ExpectedCompletionDate *dateTime `json:"expectedCompletionDate"`
	Remarks                string    `json:"remarks"`
	ReminderAt             *dateTime `json:"reminderAt"`
	ReminderBeforeMinutes  int       `json:"reminderBeforeMinutes"`
}

// List handles GET /api/schedules.
func (h *SchedulesHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := store.ListSchedules(r.Context(), h.DB, r.URL.Query().Get("upcoming") == "true")
	if err != nil {
		storeError(w, err, "list schedules")
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// Create handles POST /api/schedules.
func (h *SchedulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := store.ScheduleInput{
		ItemID:                 req.ItemID,
		Category:               req.Category,
		Quantity:               req.Quantity,
		ExpectedCompletionDate: req.ExpectedCompletionDate.ptr(),
		Remarks:                req.Remarks,
		ReminderAt:             req.ReminderAt.ptr(),
		ReminderBefore:         time.Duration(req.ReminderBeforeMinutes) * time.Minute,
		CreatedBy:              GetClaims(r.Context()).UserID,
	}
	if d := req.ScheduledDate.ptr(); d != nil {
		in.ScheduledDate = *d
	}

	s, err := store.CreateSchedule(r.Context(), h.DB, in)
	if err != nil {
		storeError(w, err, "create schedule")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("schedule created", "user", claims.Email, "schedule", s.ID, "item", s.ItemID, "date", s.ScheduledDate)
	jsonResponse(w, http.StatusCreated, s)
}

// Get handles GET /api/schedules/{id}.
func (h *SchedulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := store.GetSchedule(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get schedule")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Delete handles DELETE /api/schedules/{id}.
func (h *SchedulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := store.DeleteSchedule(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete schedule")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("schedule deleted", "user", claims.Email, "schedule", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "schedule deleted"})
}
