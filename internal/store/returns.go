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

const returnSelect = `SELECT t.id, t.release_id, t.item_id, t.returned_by, t.returned_by_email,
	t.quantity_returned, t.condition, t.remarks, t.credited, t.processed_by, t.date_returned,
	i.name, i.measuring_unit
	FROM returns t
	JOIN items i ON i.id = t.item_id`

// returnStatusCase mirrors model.DeriveReturnStatus for the row being
// updated. It takes the returned quantity three times.
var returnStatusCase = fmt.Sprintf(`CASE
	WHEN qty_returned + ? > 0 AND qty_returned + ? >= qty_released THEN '%s'
	WHEN qty_returned + ? > 0 THEN '%s'
	ELSE '%s' END`,
	model.ReturnStatusFull, model.ReturnStatusPartial, model.ReturnStatusNone)

func scanReturn(s scanner) (*model.Return, error) {
	ret := &model.Return{}
	var email, remarks, processedBy sql.NullString
	err := s.Scan(&ret.ID, &ret.ReleaseID, &ret.ItemID, &ret.ReturnedBy, &email,
		&ret.QuantityReturned, &ret.Condition, &remarks, &ret.Credited, &processedBy, &ret.DateReturned,
		&ret.ItemName, &ret.MeasuringUnit)
	if err != nil {
		return nil, err
	}
	ret.ReturnedByEmail = email.String
	ret.Remarks = remarks.String
	if processedBy.Valid {
		ret.ProcessedBy = &processedBy.String
	}
	return ret, nil
}

// ReturnInput holds the fields of a return submission.
type ReturnInput struct {
	ReleaseID        string
	QuantityReturned int
	ReturnedBy       string
	ReturnedByEmail  string
	Condition        string
	Remarks          string
	ProcessedBy      string
}

func (in *ReturnInput) validate() error {
	in.ReturnedBy = strings.TrimSpace(in.ReturnedBy)
	in.ReturnedByEmail = strings.TrimSpace(in.ReturnedByEmail)
	in.Remarks = strings.TrimSpace(in.Remarks)

	switch {
	case in.QuantityReturned < 1:
		return fmt.Errorf("%w: quantity returned must be at least 1", ErrValidation)
	case in.ReturnedBy == "":
		return fmt.Errorf("%w: returned by is required", ErrValidation)
	case !model.IsCondition(in.Condition):
		return fmt.Errorf("%w: unknown condition %q", ErrValidation, in.Condition)
	}
	if in.Remarks == "" {
		in.Remarks = model.DefaultRemarks(in.Condition)
	}
	return nil
}

// SubmitReturn applies a return against an approved, returnable release. The
// release quantities, the return record and any stock credit commit together.
func SubmitReturn(ctx context.Context, db *sql.DB, in ReturnInput) (*model.Release, *model.Return, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	q := in.QuantityReturned
	var itemID, status string
	var released, returned int
	err = tx.QueryRowContext(ctx,
		`UPDATE releases
		 SET qty_returned = qty_returned + ?,
		     return_status = `+returnStatusCase+`,
		     updated_at = ?
		 WHERE id = ? AND approval_status = 'approved' AND is_returnable = 1
		   AND qty_released - qty_returned >= ?
		 RETURNING item_id, qty_released, qty_returned, return_status`,
		q, q, q, q, ts, in.ReleaseID, q,
	).Scan(&itemID, &released, &returned, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, diagnoseReturn(ctx, tx, in)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("applying return: %w", err)
	}
	if want := model.DeriveReturnStatus(released, returned); status != want {
		return nil, nil, fmt.Errorf("return status mismatch: stored %q, derived %q", status, want)
	}

	creditable := model.IsCreditable(in.Condition)
	id := newID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO returns (id, release_id, item_id, returned_by, returned_by_email, quantity_returned,
		                      condition, remarks, credited, processed_by, date_returned)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ReleaseID, itemID, in.ReturnedBy, nullable(in.ReturnedByEmail), in.QuantityReturned,
		in.Condition, nullable(in.Remarks), boolInt(creditable), nullable(in.ProcessedBy), ts,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("recording return: %w", err)
	}

	if creditable {
		if _, err := Credit(ctx, tx, itemID, in.QuantityReturned); err != nil {
			return nil, nil, fmt.Errorf("crediting returned stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("committing return: %w", err)
	}

	release, err := GetRelease(ctx, db, in.ReleaseID)
	if err != nil {
		return nil, nil, err
	}
	ret, err := GetReturn(ctx, db, id)
	if err != nil {
		return nil, nil, err
	}
	return release, ret, nil
}

// diagnoseReturn explains why the guarded update matched no release.
func diagnoseReturn(ctx context.Context, tx *sql.Tx, in ReturnInput) error {
	var approval string
	var returnable bool
	var released, returned int
	err := tx.QueryRowContext(ctx,
		`SELECT approval_status, is_returnable, qty_released, qty_returned FROM releases WHERE id = ?`,
		in.ReleaseID,
	).Scan(&approval, &returnable, &released, &returned)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: release %s", ErrNotFound, in.ReleaseID)
	}
	if err != nil {
		return fmt.Errorf("checking release: %w", err)
	}

	remaining := released - returned
	switch {
	case approval != model.ApprovalApproved:
		return fmt.Errorf("%w: release is %s, not approved", ErrInvalidTransition, approval)
	case !returnable:
		return fmt.Errorf("%w: release is not returnable", ErrInvalidTransition)
	case remaining <= 0:
		return fmt.Errorf("%w: release is already fully returned", ErrInvalidTransition)
	default:
		return fmt.Errorf("%w: quantity returned %d exceeds remaining %d", ErrValidation, in.QuantityReturned, remaining)
	}
}

// GetReturn returns a return record by ID.
func GetReturn(ctx context.Context, db *sql.DB, id string) (*model.Return, error) {
	ret, err := scanReturn(db.QueryRowContext(ctx, returnSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: return %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting return: %w", err)
	}
	return ret, nil
}

// ReturnFilter narrows ListReturns. Zero values match everything. From is
// inclusive and To exclusive.
type ReturnFilter struct {
	ReleaseID       string
	ItemID          string
	ProcessedBy     string
	ProcessedByRole string
	From, To        time.Time
}

// ListReturns returns return records, newest first.
func ListReturns(ctx context.Context, db *sql.DB, f ReturnFilter) ([]model.Return, error) {
	query := returnSelect + ` WHERE 1=1`
	var args []any

	if f.ReleaseID != "" {
		query += ` AND t.release_id = ?`
		args = append(args, f.ReleaseID)
	}
	if f.ItemID != "" {
		query += ` AND t.item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.ProcessedBy != "" {
		query += ` AND t.processed_by = ?`
		args = append(args, f.ProcessedBy)
	}
	if f.ProcessedByRole != "" {
		query += ` AND t.processed_by IN (SELECT id FROM users WHERE role = ?)`
		args = append(args, f.ProcessedByRole)
	}
	if !f.From.IsZero() {
		query += ` AND t.date_returned >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND t.date_returned < ?`
		args = append(args, f.To.UTC())
	}
	query += ` ORDER BY t.date_returned DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing returns: %w", err)
	}
	defer rows.Close()

	returns := []model.Return{}
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning return: %w", err)
		}
		returns = append(returns, *ret)
	}
	return returns, rows.Err()
}
