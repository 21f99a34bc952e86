package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/erazemk/storekeeper/internal/model"
)

const notificationColumns = `id, kind, message, quantity, item_id, release_id, schedule_id, is_read, created_at`

func scanNotification(s scanner) (*model.Notification, error) {
	n := &model.Notification{}
	var qty sql.NullInt64
	var itemID, releaseID, scheduleID sql.NullString
	if err := s.Scan(&n.ID, &n.Kind, &n.Message, &qty, &itemID, &releaseID, &scheduleID, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	if qty.Valid {
		q := int(qty.Int64)
		n.Quantity = &q
	}
	if itemID.Valid {
		n.ItemID = &itemID.String
	}
	if releaseID.Valid {
		n.ReleaseID = &releaseID.String
	}
	if scheduleID.Valid {
		n.ScheduleID = &scheduleID.String
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertNotification(ctx context.Context, ex execer, n *model.Notification) error {
	n.ID = newID()
	n.CreatedAt = now()
	_, err := ex.ExecContext(ctx,
		`INSERT INTO notifications (id, kind, message, quantity, item_id, release_id, schedule_id, is_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Kind, n.Message, n.Quantity, n.ItemID, n.ReleaseID, n.ScheduleID, boolInt(n.Read), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// CreateNotification stores a notification and fills in its ID and time.
func CreateNotification(ctx context.Context, db *sql.DB, n model.Notification) (*model.Notification, error) {
	if n.Message == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	if n.Kind == "" {
		n.Kind = model.NotificationInfo
	}
	if err := insertNotification(ctx, db, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotifications returns notifications, newest first. A limit of zero
// returns all of them.
func ListNotifications(ctx context.Context, db *sql.DB, unreadOnly bool, limit int) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications`
	var args []any
	if unreadOnly {
		query += ` WHERE is_read = 0`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	list := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// MarkNotificationRead marks one notification as read. Marking an already
// read notification is a no-op.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification as read and
// returns how many changed.
func MarkAllNotificationsRead(ctx context.Context, db *sql.DB) (int64, error) {
	res, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0`)
	if err != nil {
		return 0, fmt.Errorf("marking notifications read: %w", err)
	}
	return res.RowsAffected()
}

// ClaimLowStockAlert records a low-stock notification for an item that has
// dropped to the stored threshold or below, unless this crossing was already
// alerted. It returns nil when there is nothing new to report.
func ClaimLowStockAlert(ctx context.Context, db *sql.DB, itemID string) (*model.Notification, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var name, unit string
	var qty int
	err = tx.QueryRowContext(ctx,
		`UPDATE items SET low_stock_alerted = 1
		 WHERE id = ? AND quantity <= `+thresholdExpr+` AND low_stock_alerted = 0 AND status != 'deleted'
		 RETURNING name, quantity, measuring_unit`,
		itemID,
	).Scan(&name, &qty, &unit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming low stock alert: %w", err)
	}

	n := &model.Notification{
		Kind:     model.NotificationLowStock,
		Message:  fmt.Sprintf("Low stock: %s has %d %s left", name, qty, unit),
		Quantity: &qty,
		ItemID:   &itemID,
	}
	if err := insertNotification(ctx, tx, n); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing low stock alert: %w", err)
	}
	return n, nil
}

// ClaimOverdueReleases flags every release that became overdue before at and
// has not been reported yet, and records one notification per release.
func ClaimOverdueReleases(ctx context.Context, db *sql.DB, at time.Time) ([]model.Notification, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := claimIDs(ctx, tx,
		`UPDATE releases SET overdue_notified = 1
		 WHERE overdue_notified = 0 AND is_returnable = 1 AND approval_status = 'approved'
		   AND qty_returned < qty_released
		   AND expected_return_by IS NOT NULL AND expected_return_by < ?
		 RETURNING id`, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("claiming overdue releases: %w", err)
	}

	var created []model.Notification
	for _, id := range ids {
		r, err := scanRelease(tx.QueryRowContext(ctx, releaseSelect+` WHERE r.id = ?`, id), at)
		if err != nil {
			return nil, fmt.Errorf("loading overdue release: %w", err)
		}
		remaining := r.QtyRemaining
		n := &model.Notification{
			Kind: model.NotificationOverdue,
			Message: fmt.Sprintf("Overdue: %d %s of %s released to %s was due %s",
				remaining, r.MeasuringUnit, r.ItemName, r.ReleasedTo, r.ExpectedReturnBy.Format(time.DateOnly)),
			Quantity:  &remaining,
			ItemID:    &r.ItemID,
			ReleaseID: &r.ID,
		}
		if err := insertNotification(ctx, tx, n); err != nil {
			return nil, err
		}
		created = append(created, *n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing overdue notifications: %w", err)
	}
	return created, nil
}

// ClaimDueReminders flags every schedule whose reminder time has passed and
// records one reminder notification per schedule.
func ClaimDueReminders(ctx context.Context, db *sql.DB, at time.Time) ([]model.Notification, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	ids, err := claimIDs(ctx, tx,
		`UPDATE schedules SET reminded = 1 WHERE reminded = 0 AND reminder_at <= ? RETURNING id`,
		at.UTC())
	if err != nil {
		return nil, fmt.Errorf("claiming reminders: %w", err)
	}

	var created []model.Notification
	for _, id := range ids {
		s, err := scanSchedule(tx.QueryRowContext(ctx, scheduleSelect+` WHERE s.id = ?`, id))
		if err != nil {
			return nil, fmt.Errorf("loading schedule: %w", err)
		}
		qty := s.Quantity
		n := &model.Notification{
			Kind: model.NotificationReminder,
			Message: fmt.Sprintf("Reminder: %s of %d %s scheduled for %s",
				s.Category, qty, s.ItemName, s.ScheduledDate.Format("2006-01-02 15:04")),
			Quantity:   &qty,
			ItemID:     &s.ItemID,
			ScheduleID: &s.ID,
		}
		if err := insertNotification(ctx, tx, n); err != nil {
			return nil, err
		}
		created = append(created, *n)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reminders: %w", err)
	}
	return created, nil
}

// claimIDs runs an UPDATE ... RETURNING id and collects the IDs.
func claimIDs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
