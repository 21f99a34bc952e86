package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/storekeeper/internal/auth"
	"github.com/erazemk/storekeeper/internal/model"
	"github.com/erazemk/storekeeper/internal/store"
)

// UsersHandler handles user management endpoints (superadmin only).
type UsersHandler struct {
	DB *sql.DB
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/user.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "list users")
		return
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/user.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Name, req.Email, hash, req.Role)
	if err != nil {
		storeError(w, err, "create user")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user created", "user", claims.Email, "new_user", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/user/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		storeError(w, err, "get user")
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/user/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	if req.Role != nil && claims.UserID == id && *req.Role != claims.Role {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, store.UserUpdate{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		storeError(w, err, "update user")
		return
	}

	slog.Info("user updated", "user", claims.Email, "target_user", user.Email, "role", user.Role)
	jsonResponse(w, http.StatusOK, user)
}

// SetActive handles PUT /api/user/{id}/active.
func (h *UsersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Active == nil {
		jsonError(w, http.StatusBadRequest, "active flag required")
		return
	}

	claims := GetClaims(r.Context())
	if claims.UserID == id && !*req.Active {
		jsonError(w, http.StatusBadRequest, "cannot deactivate yourself")
		return
	}

	user, err := store.SetUserActive(r.Context(), h.DB, id, *req.Active)
	if err != nil {
		storeError(w, err, "update user")
		return
	}

	slog.Info("user active changed", "user", claims.Email, "target_user", user.Email, "active", user.Active)
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/user/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
		storeError(w, err, "reset password")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("user password reset", "user", claims.Email, "target_user", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "password reset"})
}

// Delete handles DELETE /api/user/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Prevent self-deletion.
	claims := GetClaims(r.Context())
	if claims.UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "delete user")
		return
	}

	slog.Info("user deleted", "user", claims.Email, "deleted_user", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
