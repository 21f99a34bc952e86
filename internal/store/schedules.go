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

const scheduleSelect = `SELECT s.id, s.item_id, s.category, s.quantity, s.scheduled_date,
	s.expected_completion_date, s.remarks, s.reminder_at, s.reminded, s.created_by, s.created_at,
	i.name
	FROM schedules s
	JOIN items i ON i.id = s.item_id`

func scanSchedule(sc scanner) (*model.Schedule, error) {
	s := &model.Schedule{}
	var completion sql.NullTime
	var remarks, createdBy sql.NullString
	err := sc.Scan(&s.ID, &s.ItemID, &s.Category, &s.Quantity, &s.ScheduledDate,
		&completion, &remarks, &s.ReminderAt, &s.Reminded, &createdBy, &s.CreatedAt,
		&s.ItemName)
	if err != nil {
		return nil, err
	}
	if completion.Valid {
		s.ExpectedCompletionDate = &completion.Time
	}
	if createdBy.Valid {
		s.CreatedBy = &createdBy.String
	}
	s.Remarks = remarks.String
	return s, nil
}

// ScheduleInput holds the fields of a new maintenance schedule.
type ScheduleInput struct {
	ItemID                 string
	Category               string
	Quantity               int
	ScheduledDate          time.Time
	ExpectedCompletionDate *time.Time
	Remarks                string
	ReminderAt             *time.Time
	ReminderBefore         time.Duration
	CreatedBy              string
}

// CreateSchedule plans a maintenance task against an existing item.
func CreateSchedule(ctx context.Context, db *sql.DB, in ScheduleInput) (*model.Schedule, error) {
	switch {
	case in.ItemID == "":
		return nil, fmt.Errorf("%w: item is required", ErrValidation)
	case !model.IsReleaseCategory(in.Category):
		return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, in.Category)
	case in.Quantity < 1:
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	case in.ScheduledDate.IsZero():
		return nil, fmt.Errorf("%w: scheduled date is required", ErrValidation)
	case in.ReminderBefore < 0:
		return nil, fmt.Errorf("%w: reminder offset must not be negative", ErrValidation)
	}
	if in.ExpectedCompletionDate != nil && in.ExpectedCompletionDate.Before(in.ScheduledDate) {
		return nil, fmt.Errorf("%w: expected completion is before the scheduled date", ErrValidation)
	}

	item, err := GetItem(ctx, db, in.ItemID)
	if err != nil {
		return nil, err
	}
	if item.CurrentStatus == model.ItemStatusDeleted {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, in.ItemID)
	}

	scheduled := in.ScheduledDate.UTC()
	reminder := model.ReminderTime(scheduled, in.ReminderAt, in.ReminderBefore).UTC()
	var completion *time.Time
	if in.ExpectedCompletionDate != nil {
		c := in.ExpectedCompletionDate.UTC()
		completion = &c
	}

	id := newID()
	_, err = db.ExecContext(ctx,
		`INSERT INTO schedules (id, item_id, category, quantity, scheduled_date, expected_completion_date,
		                        remarks, reminder_at, reminded, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id, in.ItemID, in.Category, in.Quantity, scheduled, completion,
		nullable(strings.TrimSpace(in.Remarks)), reminder, nullable(in.CreatedBy), now(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating schedule: %w", err)
	}

	return GetSchedule(ctx, db, id)
}

// GetSchedule returns a schedule by ID.
func GetSchedule(ctx context.Context, db *sql.DB, id string) (*model.Schedule, error) {
	s, err := scanSchedule(db.QueryRowContext(ctx, scheduleSelect+` WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: schedule %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	return s, nil
}

// ListSchedules returns schedules ordered by date. With upcomingOnly set,
// schedules dated before now are skipped.
func ListSchedules(ctx context.Context, db *sql.DB, upcomingOnly bool) ([]model.Schedule, error) {
	query := scheduleSelect
	var args []any
	if upcomingOnly {
		query += ` WHERE s.scheduled_date >= ?`
		args = append(args, now())
	}
	query += ` ORDER BY s.scheduled_date`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	list := []model.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// DeleteSchedule removes a schedule.
func DeleteSchedule(ctx context.Context, db *sql.DB, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: schedule %s", ErrNotFound, id)
	}
	return nil
}
