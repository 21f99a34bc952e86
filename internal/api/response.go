package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/erazemk/storekeeper/internal/store"
)

// Error codes sent alongside error messages.
const (
	codeValidation        = "validation_error"
	codeInsufficientStock = "insufficient_stock"
	codeInvalidTransition = "invalid_transition"
	codeNotFound          = "not_found"
	codeConflict          = "conflict"
	codeUnauthorized      = "unauthorized"
	codeForbidden         = "forbidden"
	codeInternal          = "internal_error"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response with the default code for status.
func jsonError(w http.ResponseWriter, status int, message string) {
	writeError(w, status, defaultCode(status), message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, errorResponse{Error: message, Code: code})
}

func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeValidation
	case http.StatusUnauthorized:
		return codeUnauthorized
	case http.StatusForbidden:
		return codeForbidden
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusConflict:
		return codeConflict
	default:
		return codeInternal
	}
}

// storeError maps a store error to a response. Unexpected errors are logged
// and reported without detail.
func storeError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, codeConflict, err.Error())
	default:
		slog.Error("request failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "failed to "+action)
	}
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// dateTime accepts either an RFC 3339 timestamp or a plain date.
type dateTime struct {
	time.Time
}

func (d *dateTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly, "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// ptr returns the time or nil when unset.
func (d *dateTime) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}
