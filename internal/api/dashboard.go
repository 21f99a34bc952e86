package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/storekeeper/internal/store"
)

// DashboardHandler serves the dashboard summary and reports.
type DashboardHandler struct {
	DB *sql.DB
}

// Summary handles GET /api/dashboard/summary.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := store.Summary(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "build summary")
		return
	}
	jsonResponse(w, http.StatusOK, s)
}

// Monthly handles GET /api/report/monthly/{month}.
func (h *DashboardHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	rep, err := store.MonthlyReport(r.Context(), h.DB, r.PathValue("month"))
	if err != nil {
		storeError(w, err, "build monthly report")
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

// Yearly handles GET /api/report/yearly/{year}.
func (h *DashboardHandler) Yearly(w http.ResponseWriter, r *http.Request) {
	rep, err := store.YearlyReport(r.Context(), h.DB, r.PathValue("year"))
	if err != nil {
		storeError(w, err, "build yearly report")
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

// ByUser handles GET /api/report/user/{userId}.
func (h *DashboardHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	rep, err := store.UserReport(r.Context(), h.DB, r.PathValue("userId"))
	if err != nil {
		storeError(w, err, "build user report")
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

// ByRole handles GET /api/report/role/{role}.
func (h *DashboardHandler) ByRole(w http.ResponseWriter, r *http.Request) {
	rep, err := store.RoleReport(r.Context(), h.DB, r.PathValue("role"))
	if err != nil {
		storeError(w, err, "build role report")
		return
	}
	jsonResponse(w, http.StatusOK, rep)
}

// Inventory handles GET /api/report/inventory-summary.
func (h *DashboardHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	sum, err := store.InventorySummary(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "build inventory summary")
		return
	}
	jsonResponse(w, http.StatusOK, sum)
}

// Chart handles GET /api/report/chart-data.
func (h *DashboardHandler) Chart(w http.ResponseWriter, r *http.Request) {
	c, err := store.ChartData(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "build chart data")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}
