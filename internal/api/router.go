package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/storekeeper/internal/events"
	"github.com/erazemk/storekeeper/internal/imaging"
	"github.com/erazemk/storekeeper/internal/model"
	"github.com/erazemk/storekeeper/internal/notify"
)

// RouterConfig holds what the API handlers depend on.
type RouterConfig struct {
	DB        *sql.DB
	JWTSecret string
	Notifier  *notify.Notifier
	Hub       *events.Hub
	Images    imaging.Processor
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	hub := cfg.Hub
	if hub == nil {
		hub = events.NewHub()
	}

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret}
	usersHandler := &UsersHandler{DB: cfg.DB}
	itemsHandler := &ItemsHandler{DB: cfg.DB, Notifier: cfg.Notifier, Images: cfg.Images}
	releasesHandler := &ReleasesHandler{DB: cfg.DB, Notifier: cfg.Notifier}
	returnsHandler := &ReturnsHandler{DB: cfg.DB}
	notificationsHandler := &NotificationsHandler{DB: cfg.DB, Hub: hub}
	dashboardHandler := &DashboardHandler{DB: cfg.DB}
	schedulesHandler := &SchedulesHandler{DB: cfg.DB}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	requireSuper := RequireRole(model.RoleSuperAdmin)
	requireAdmin := RequireRole(model.RoleAdmin)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	super := func(h http.HandlerFunc) http.Handler { return authMW(requireSuper(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)

	// Session.
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))

	// Items: read (all roles), write (admin+), delete (superadmin).
	mux.Handle("GET /api/item/get", authed(itemsHandler.List))
	mux.Handle("POST /api/item/add", admin(itemsHandler.Create))
	mux.Handle("GET /api/items/returnable", authed(itemsHandler.Returnable))
	mux.Handle("GET /api/item/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/item/{id}", admin(itemsHandler.Update))
	mux.Handle("DELETE /api/item/{id}", super(itemsHandler.Delete))
	mux.Handle("PUT /api/item/{id}/image", admin(itemsHandler.UploadImage))
	mux.Handle("GET /api/item/{id}/image", authed(itemsHandler.GetImage))

	// Releases: any role may request, admin+ approves or cancels.
	mux.Handle("POST /api/item/release/{itemId}", authed(releasesHandler.Create))
	mux.Handle("POST /api/release", authed(releasesHandler.Create))
	mux.Handle("GET /api/release", authed(releasesHandler.List))
	mux.Handle("GET /api/release/{id}", authed(releasesHandler.Get))
	mux.Handle("PATCH /api/release/{id}/status", admin(releasesHandler.SetStatus))

	// Returns are processed by admin+.
	mux.Handle("POST /api/return/release/{releaseId}", admin(returnsHandler.Submit))
	mux.Handle("GET /api/return", authed(returnsHandler.List))
	mux.Handle("GET /api/return/release/{releaseId}", authed(returnsHandler.History))

	// Notifications (admin+).
	mux.Handle("GET /api/notifications", admin(notificationsHandler.List))
	mux.Handle("PUT /api/notifications/read-all", admin(notificationsHandler.MarkAllRead))
	mux.Handle("PUT /api/notifications/{id}", admin(notificationsHandler.MarkRead))
	mux.Handle("PATCH /api/notifications/{id}/read", admin(notificationsHandler.Read))
	mux.Handle("GET "+streamPath, admin(notificationsHandler.Stream))

	// Dashboard and reports (admin+).
	mux.Handle("GET /api/dashboard/summary", admin(dashboardHandler.Summary))
	mux.Handle("GET /api/report/monthly/{month}", admin(dashboardHandler.Monthly))
	mux.Handle("GET /api/report/yearly/{year}", admin(dashboardHandler.Yearly))
	mux.Handle("GET /api/report/user/{userId}", admin(dashboardHandler.ByUser))
	mux.Handle("GET /api/report/role/{role}", admin(dashboardHandler.ByRole))
	mux.Handle("GET /api/report/inventory-summary", admin(dashboardHandler.Inventory))
	mux.Handle("GET /api/report/chart-data", admin(dashboardHandler.Chart))

	// Schedules: read (all roles), write (admin+).
	mux.Handle("GET /api/schedules", authed(schedulesHandler.List))
	mux.Handle("POST /api/schedules", admin(schedulesHandler.Create))
	mux.Handle("GET /api/schedules/{id}", authed(schedulesHandler.Get))
	mux.Handle("DELETE /api/schedules/{id}", admin(schedulesHandler.Delete))

	// Users (superadmin only).
	mux.Handle("GET /api/user", super(usersHandler.List))
	mux.Handle("POST /api/user", super(usersHandler.Create))
	mux.Handle("GET /api/user/{id}", super(usersHandler.Get))
	mux.Handle("PUT /api/user/{id}", super(usersHandler.Update))
	mux.Handle("PUT /api/user/{id}/active", super(usersHandler.SetActive))
	mux.Handle("PUT /api/user/{id}/password", super(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/user/{id}", super(usersHandler.Delete))

	return mux
}
