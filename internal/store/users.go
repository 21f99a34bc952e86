package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/storekeeper/internal/model"
)

const userColumns = `id, name, email, password_hash, role, active, created_at, deleted_at`

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	var deletedAt sql.NullTime
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}
	return u, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser creates a new active user.
func CreateUser(ctx context.Context, db *sql.DB, name, email, passwordHash, role string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	case !model.IsRole(role):
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	id := newID()
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, active, created_at)
		 VALUES (?, ?, ?, ?, ?, 1, ?)`,
		id, name, email, passwordHash, role, now(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, email)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, including soft-deleted users.
func GetUser(ctx context.Context, db *sql.DB, id string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the non-deleted user with the given email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`,
		NormalizeEmail(email),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of non-deleted users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UserUpdate holds the profile fields to change; nil fields are left alone.
type UserUpdate struct {
	Name  *string
	Email *string
	Role  *string
}

// UpdateUser updates a user's profile and role.
func UpdateUser(ctx context.Context, db *sql.DB, id string, upd UserUpdate) (*model.User, error) {
	var sets []string
	var args []any

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrValidation)
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
		}
		sets = append(sets, "email = ?")
		args = append(args, email)
	}
	if upd.Role != nil {
		if !model.IsRole(*upd.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *upd.Role)
		}
		sets = append(sets, "role = ?")
		args = append(args, *upd.Role)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	args = append(args, id)

	res, err := db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		args...,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: email is already registered", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}

	return GetUser(ctx, db, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id string, passwordHash string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}

// SetUserActive enables or disables sign-in for a user.
func SetUserActive(ctx context.Context, db *sql.DB, id string, active bool) (*model.User, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET active = ? WHERE id = ? AND deleted_at IS NULL`,
		boolInt(active), id,
	)
	if err != nil {
		return nil, fmt.Errorf("setting user active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return GetUser(ctx, db, id)
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, active = 0 WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}
