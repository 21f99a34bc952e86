package api

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/storekeeper/internal/events"
	"github.com/erazemk/storekeeper/internal/store"
)

const (
	streamPath      = "/api/notifications/stream"
	streamBuffer    = 16
	streamHeartbeat = 25 * time.Second
)

// NotificationsHandler handles the notification log and its live stream.
type NotificationsHandler struct {
	DB  *sql.DB
	Hub *events.Hub
}

type markReadRequest struct {
	Read bool `json:"read"`
}

// List handles GET /api/notifications.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := store.ListNotifications(r.Context(), h.DB, q.Get("unread") == "true", limit)
	if err != nil {
		storeError(w, err, "list notifications")
		return
	}
	jsonResponse(w, http.StatusOK, list)
}

// MarkRead handles PUT /api/notifications/{id}.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Read {
		jsonError(w, http.StatusBadRequest, "notifications can only be marked read")
		return
	}
	h.markRead(w, r)
}

// Read handles PATCH /api/notifications/{id}/read. It takes no body.
func (h *NotificationsHandler) Read(w http.ResponseWriter, r *http.Request) {
	h.markRead(w, r)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := store.MarkNotificationRead(r.Context(), h.DB, r.PathValue("id")); err != nil {
		storeError(w, err, "mark notification read")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "notification marked read"})
}

// MarkAllRead handles PUT /api/notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := store.MarkAllNotificationsRead(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "mark notifications read")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("notifications marked read", "user", claims.Email, "count", n)
	jsonResponse(w, http.StatusOK, map[string]int64{"updated": n})
}

// Stream handles GET /api/notifications/stream as Server-Sent Events.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("cannot clear write deadline", "error", err)
	}

	ch, unsubscribe := h.Hub.Subscribe(streamBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		slog.Error("streaming not supported", "error", err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("notification stream opened", "user", claims.Email)
	defer slog.Info("notification stream closed", "user", claims.Email)

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev.Notification)
			if err != nil {
				slog.Error("failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", ev.Type, ev.Notification.ID, data)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
