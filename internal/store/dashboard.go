package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/storekeeper/internal/model"
)

// TrendDays is how many days the expected/overdue trend covers.
const TrendDays = 7

// Summary builds the dashboard aggregate against the stored low-stock
// threshold.
func Summary(ctx context.Context, db *sql.DB) (*model.Summary, error) {
	threshold, err := GetLowStockThreshold(ctx, db)
	if err != nil {
		return nil, err
	}
	at := now()
	s := &model.Summary{Threshold: threshold}

	err = db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM items WHERE status != 'deleted'),
		   (SELECT COUNT(*) FROM items WHERE status = 'out'),
		   (SELECT COUNT(*) FROM items WHERE status != 'deleted' AND quantity <= ?),
		   (SELECT COUNT(*) FROM releases),
		   (SELECT COUNT(*) FROM releases WHERE approval_status = 'pending'),
		   (SELECT COUNT(*) FROM returns),
		   (SELECT COUNT(*) FROM releases r WHERE `+overdueCond+`)`,
		threshold, at,
	).Scan(&s.Counts.Items, &s.Counts.OutOfStock, &s.Counts.LowStock, &s.Counts.Releases,
		&s.Counts.PendingApprovals, &s.Counts.Returns, &s.Counts.Overdue)
	if err != nil {
		return nil, fmt.Errorf("counting summary: %w", err)
	}

	if s.LowStock, err = ListLowStockItems(ctx, db, threshold); err != nil {
		return nil, err
	}
	if s.TopReleased, err = topReleased(ctx, db, 5); err != nil {
		return nil, err
	}
	if s.ExpectedOverdueTrend, err = expectedOverdueTrend(ctx, db, at); err != nil {
		return nil, err
	}
	return s, nil
}

func topReleased(ctx context.Context, db *sql.DB, limit int) ([]model.TopReleased, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.item_id, i.name, SUM(r.qty_released) AS total, COUNT(*)
		 FROM releases r
		 JOIN items i ON i.id = r.item_id
		 WHERE r.approval_status != 'cancelled'
		 GROUP BY r.item_id, i.name
		 ORDER BY total DESC, i.name
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ranking released items: %w", err)
	}
	defer rows.Close()

	top := []model.TopReleased{}
	for rows.Next() {
		var t model.TopReleased
		if err := rows.Scan(&t.ItemID, &t.Name, &t.TotalQty, &t.ReleaseRuns); err != nil {
			return nil, fmt.Errorf("scanning released item: %w", err)
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

// expectedOverdueTrend counts, for each of the last TrendDays days, the
// returnable releases due that day and how many of them are overdue now.
func expectedOverdueTrend(ctx context.Context, db *sql.DB, at time.Time) ([]model.TrendPoint, error) {
	today := at.Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(TrendDays - 1))
	end := today.AddDate(0, 0, 1)

	points := make([]model.TrendPoint, TrendDays)
	index := make(map[string]int, TrendDays)
	for i := range points {
		day := start.AddDate(0, 0, i).Format(time.DateOnly)
		points[i].Date = day
		index[day] = i
	}

	rows, err := db.QueryContext(ctx,
		`SELECT expected_return_by, approval_status, qty_released, qty_returned
		 FROM releases
		 WHERE is_returnable = 1 AND approval_status != 'cancelled'
		   AND expected_return_by >= ? AND expected_return_by < ?`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("loading release trend: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var due time.Time
		r := model.Release{IsReturnable: true}
		if err := rows.Scan(&due, &r.ApprovalStatus, &r.QtyReleased, &r.QtyReturned); err != nil {
			return nil, fmt.Errorf("scanning release trend: %w", err)
		}
		r.ExpectedReturnBy = &due
		r.Derive(at)

		i, ok := index[due.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		points[i].Expected++
		if r.Overdue {
			points[i].Overdue++
		}
	}
	return points, rows.Err()
}

// monthLayouts are the accepted month spellings: "2006-01" and "01-2006".
var monthLayouts = []string{"2006-01", "01-2006"}

// MonthlyReport lists releases and returns in a calendar month. The report
// period is always reported as "2006-01".
func MonthlyReport(ctx context.Context, db *sql.DB, month string) (*model.Report, error) {
	for _, layout := range monthLayouts {
		start, err := time.Parse(layout, month)
		if err != nil {
			continue
		}
		return periodReport(ctx, db, start.Format("2006-01"), start, start.AddDate(0, 1, 0))
	}
	return nil, fmt.Errorf("%w: month must look like 2006-01 or 01-2006", ErrValidation)
}

// YearlyReport lists releases and returns in a calendar year ("2006").
func YearlyReport(ctx context.Context, db *sql.DB, period string) (*model.Report, error) {
	start, err := time.Parse("2006", period)
	if err != nil {
		return nil, fmt.Errorf("%w: year must look like 2006", ErrValidation)
	}
	return periodReport(ctx, db, period, start, start.AddDate(1, 0, 0))
}

// UserReport lists the releases a user made and the returns they processed.
func UserReport(ctx context.Context, db *sql.DB, userID string) (*model.Report, error) {
	if _, err := GetUser(ctx, db, userID); err != nil {
		return nil, err
	}
	releases, err := ListReleases(ctx, db, ReleaseFilter{ReleasedBy: userID})
	if err != nil {
		return nil, err
	}
	returns, err := ListReturns(ctx, db, ReturnFilter{ProcessedBy: userID})
	if err != nil {
		return nil, err
	}
	return buildReport("user/"+userID, releases, returns), nil
}

// RoleReport lists the releases made and returns processed by users holding
// role.
func RoleReport(ctx context.Context, db *sql.DB, role string) (*model.Report, error) {
	if !model.IsRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	releases, err := ListReleases(ctx, db, ReleaseFilter{ReleasedByRole: role})
	if err != nil {
		return nil, err
	}
	returns, err := ListReturns(ctx, db, ReturnFilter{ProcessedByRole: role})
	if err != nil {
		return nil, err
	}
	return buildReport("role/"+role, releases, returns), nil
}

// InventorySummary reports every release and return with all-time totals.
func InventorySummary(ctx context.Context, db *sql.DB) (*model.InventorySummary, error) {
	out := &model.InventorySummary{}
	t := &out.Summary

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM items WHERE status != 'deleted'`,
	).Scan(&t.Items, &t.UnitsInStock)
	if err != nil {
		return nil, fmt.Errorf("counting stock: %w", err)
	}

	if out.Data.Releases, err = ListReleases(ctx, db, ReleaseFilter{}); err != nil {
		return nil, err
	}
	if out.Data.Returns, err = ListReturns(ctx, db, ReturnFilter{}); err != nil {
		return nil, err
	}

	rep := buildReport("all", out.Data.Releases, out.Data.Returns)
	t.Releases = len(out.Data.Releases)
	t.Returns = len(out.Data.Returns)
	t.TotalReleased = rep.TotalReleased
	t.TotalReturned = rep.TotalReturned
	for _, r := range out.Data.Releases {
		if r.IsReturnable && r.ApprovalStatus == model.ApprovalApproved {
			t.Outstanding += r.QtyRemaining
		}
		if r.Overdue {
			t.Overdue++
		}
	}
	return out, nil
}

// ChartData returns released and returned quantities per day over the last
// TrendDays days, plus the overdue counts of the expected/overdue trend.
func ChartData(ctx context.Context, db *sql.DB) (*model.ChartData, error) {
	at := now()
	start := at.Truncate(24*time.Hour).AddDate(0, 0, -(TrendDays - 1))
	end := start.AddDate(0, 0, TrendDays)

	c := &model.ChartData{
		Labels:   make([]string, TrendDays),
		Released: make([]int, TrendDays),
		Returned: make([]int, TrendDays),
		Overdue:  make([]int, TrendDays),
	}
	for i := range c.Labels {
		c.Labels[i] = start.AddDate(0, 0, i).Format(time.DateOnly)
	}
	day := func(t time.Time) int {
		return int(t.UTC().Sub(start) / (24 * time.Hour))
	}

	releases, err := ListReleases(ctx, db, ReleaseFilter{From: start, To: end})
	if err != nil {
		return nil, err
	}
	for _, r := range releases {
		if r.ApprovalStatus != model.ApprovalCancelled {
			c.Released[day(r.CreatedAt)] += r.QtyReleased
		}
	}

	returns, err := ListReturns(ctx, db, ReturnFilter{From: start, To: end})
	if err != nil {
		return nil, err
	}
	for _, r := range returns {
		c.Returned[day(r.DateReturned)] += r.QuantityReturned
	}

	trend, err := expectedOverdueTrend(ctx, db, at)
	if err != nil {
		return nil, err
	}
	for i, p := range trend {
		c.Overdue[i] = p.Overdue
	}
	return c, nil
}

func periodReport(ctx context.Context, db *sql.DB, period string, from, to time.Time) (*model.Report, error) {
	releases, err := ListReleases(ctx, db, ReleaseFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	returns, err := ListReturns(ctx, db, ReturnFilter{From: from, To: to})
	if err != nil {
		return nil, err
	}
	return buildReport(period, releases, returns), nil
}

func buildReport(period string, releases []model.Release, returns []model.Return) *model.Report {
	rep := &model.Report{Period: period, Releases: releases, Returns: returns}
	for _, r := range releases {
		if r.ApprovalStatus != model.ApprovalCancelled {
			rep.TotalReleased += r.QtyReleased
		}
	}
	for _, r := range returns {
		rep.TotalReturned += r.QuantityReturned
	}
	return rep
}
