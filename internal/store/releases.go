package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/storekeeper/internal/model"
)

const releaseSelect = `SELECT r.id, r.item_id, r.qty_released, r.qty_returned, r.released_to, r.released_by,
	r.category, r.is_returnable, r.reason, r.remarks, r.expected_return_by,
	r.approval_status, r.approved_by, r.created_at, r.updated_at,
	i.name, i.measuring_unit, COALESCE(u.name, '')
	FROM releases r
	JOIN items i ON i.id = r.item_id
	LEFT JOIN users u ON u.id = r.released_by`

// overdueCond matches releases still owed back past their due date.
const overdueCond = `r.is_returnable = 1 AND r.approval_status = 'approved'
	AND r.qty_returned < r.qty_released
	AND r.expected_return_by IS NOT NULL AND r.expected_return_by < ?`

func scanRelease(s scanner, at time.Time) (*model.Release, error) {
	r := &model.Release{}
	var releasedBy, approvedBy, remarks sql.NullString
	var expected sql.NullTime
	err := s.Scan(&r.ID, &r.ItemID, &r.QtyReleased, &r.QtyReturned, &r.ReleasedTo, &releasedBy,
		&r.Category, &r.IsReturnable, &r.Reason, &remarks, &expected,
		&r.ApprovalStatus, &approvedBy, &r.CreatedAt, &r.UpdatedAt,
		&r.ItemName, &r.MeasuringUnit, &r.ReleasedByName)
	if err != nil {
		return nil, err
	}
	if releasedBy.Valid {
		r.ReleasedBy = &releasedBy.String
	}
	if approvedBy.Valid {
		r.ApprovedBy = &approvedBy.String
	}
	if expected.Valid {
		t := expected.Time.UTC()
		r.ExpectedReturnBy = &t
	}
	r.Remarks = remarks.String
	r.Derive(at)
	return r, nil
}

// ReleaseInput holds the fields of a new release.
type ReleaseInput struct {
	ItemID           string
	Qty              int
	ReleasedTo       string
	ReleasedBy       string
	Category         string
	Reason           string
	Remarks          string
	ExpectedReturnBy *time.Time
}

func (in *ReleaseInput) validate(today time.Time) error {
	in.ReleasedTo = strings.TrimSpace(in.ReleasedTo)
	in.Reason = strings.TrimSpace(in.Reason)
	in.Remarks = strings.TrimSpace(in.Remarks)

	switch {
	case in.ItemID == "":
		return fmt.Errorf("%w: item is required", ErrValidation)
	case in.Qty < 1:
		return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	case in.ReleasedTo == "":
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	case in.Reason == "":
		return fmt.Errorf("%w: reason is required", ErrValidation)
	case !model.IsReleaseCategory(in.Category):
		return fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	}

	if !model.IsReturnableCategory(in.Category) {
		in.ExpectedReturnBy = nil
		return nil
	}
	if in.ExpectedReturnBy == nil || in.ExpectedReturnBy.IsZero() {
		return fmt.Errorf("%w: expected return date is required for %s releases", ErrValidation, in.Category)
	}
	due := in.ExpectedReturnBy.UTC()
	if due.Before(today) {
		return fmt.Errorf("%w: expected return date is in the past", ErrValidation)
	}
	in.ExpectedReturnBy = &due
	return nil
}

// CreateRelease checks out units of an item. Stock is deducted immediately;
// the release starts pending approval with nothing returned.
func CreateRelease(ctx context.Context, db *sql.DB, in ReleaseInput) (*model.Release, error) {
	ts := now()
	if err := in.validate(ts.Truncate(24 * time.Hour)); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// The guarded decrement goes first so the write lock is held before any read.
	if _, err := Reserve(ctx, tx, in.ItemID, in.Qty); err != nil {
		return nil, err
	}

	id := newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO releases (id, item_id, qty_released, qty_returned, released_to, released_by,
		                       category, is_returnable, reason, remarks, expected_return_by,
		                       approval_status, return_status, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ItemID, in.Qty, in.ReleasedTo, nullable(in.ReleasedBy),
		in.Category, boolInt(model.IsReturnableCategory(in.Category)), in.Reason, nullable(in.Remarks),
		in.ExpectedReturnBy, model.ApprovalPending, model.DeriveReturnStatus(in.Qty, 0), ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("recording release: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing release: %w", err)
	}

	return GetRelease(ctx, db, id)
}

// SetApproval moves a pending release to approved or cancelled. Cancelling
// puts the reserved units back into stock.
func SetApproval(ctx context.Context, db *sql.DB, id, action, actorID string) (*model.Release, error) {
	if action != model.ApprovalApproved && action != model.ApprovalCancelled {
		return nil, fmt.Errorf("%w: cannot set approval status to %q", ErrInvalidTransition, action)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var itemID string
	var qty int
	err = tx.QueryRowContext(ctx,
		`UPDATE releases SET approval_status = ?, approved_by = ?, updated_at = ?
		 WHERE id = ? AND approval_status = 'pending'
		 RETURNING item_id, qty_released`,
		action, nullable(actorID), now(), id,
	).Scan(&itemID, &qty)
	if errors.Is(err, sql.ErrNoRows) {
		var current string
		err = tx.QueryRowContext(ctx,
			`SELECT approval_status FROM releases WHERE id = ?`, id,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: release %s", ErrNotFound, id)
		}
		if err != nil {
			return nil, fmt.Errorf("checking release: %w", err)
		}
		return nil, fmt.Errorf("%w: release is already %s", ErrInvalidTransition, current)
	}
	if err != nil {
		return nil, fmt.Errorf("updating approval: %w", err)
	}

	if action == model.ApprovalCancelled {
		if _, err := Credit(ctx, tx, itemID, qty); err != nil {
			return nil, fmt.Errorf("restoring stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}

	return GetRelease(ctx, db, id)
}

// GetRelease returns a release by ID with its derived fields filled in.
func GetRelease(ctx context.Context, db *sql.DB, id string) (*model.Release, error) {
	r, err := scanRelease(db.QueryRowContext(ctx, releaseSelect+` WHERE r.id = ?`, id), now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: release %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting release: %w", err)
	}
	return r, nil
}

// ReleaseFilter narrows ListReleases. Zero values match everything. From is
// inclusive and To exclusive.
type ReleaseFilter struct {
	ApprovalStatus string
	ItemID         string
	ReleasedBy     string
	ReleasedByRole string
	ReturnableOnly bool
	Overdue        bool
	From, To       time.Time
}

// ListReleases returns releases, newest first.
func ListReleases(ctx context.Context, db *sql.DB, f ReleaseFilter) ([]model.Release, error) {
	at := now()
	query := releaseSelect + ` WHERE 1=1`
	var args []any

	if f.ApprovalStatus != "" {
		query += ` AND r.approval_status = ?`
		args = append(args, f.ApprovalStatus)
	}
	if f.ItemID != "" {
		query += ` AND r.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.ReleasedBy != "" {
		query += ` AND r.released_by = ?`
		args = append(args, f.ReleasedBy)
	}
	if f.ReleasedByRole != "" {
		query += ` AND u.role = ?`
		args = append(args, f.ReleasedByRole)
	}
	if f.ReturnableOnly {
		query += ` AND r.is_returnable = 1`
	}
	if f.Overdue {
		query += ` AND ` + overdueCond
		args = append(args, at)
	}
	if !f.From.IsZero() {
		query += ` AND r.created_at >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND r.created_at < ?`
		args = append(args, f.To.UTC())
	}
	query += ` ORDER BY r.created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}
	defer rows.Close()

	releases := []model.Release{}
	for rows.Next() {
		r, err := scanRelease(rows, at)
		if err != nil {
			return nil, fmt.Errorf("scanning release: %w", err)
		}
		releases = append(releases, *r)
	}
	return releases, rows.Err()
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
