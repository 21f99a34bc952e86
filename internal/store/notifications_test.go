package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storekeeper/internal/db"
	"github.com/erazemk/storekeeper/internal/model"
)

func TestMarkNotificationReadIsIdempotent(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	n, err := CreateNotification(ctx, database, model.Notification{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, model.NotificationInfo, n.Kind)

	require.NoError(t, MarkNotificationRead(ctx, database, n.ID))
	first, err := ListNotifications(ctx, database, false, 0)
	require.NoError(t, err)

	require.NoError(t, MarkNotificationRead(ctx, database, n.ID))
	second, err := ListNotifications(ctx, database, false, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.True(t, second[0].Read)

	assert.ErrorIs(t, MarkNotificationRead(ctx, database, "missing"), ErrNotFound)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		_, err := CreateNotification(ctx, database, model.Notification{Message: msg})
		require.NoError(t, err)
	}

	unread, err := ListNotifications(ctx, database, true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 3)

	n, err := MarkAllNotificationsRead(ctx, database)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	unread, _ = ListNotifications(ctx, database, true, 0)
	assert.Empty(t, unread)

	limited, _ := ListNotifications(ctx, database, false, 2)
	assert.Len(t, limited, 2)
}

func TestLowStockAlertOncePerCrossing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Filters", 8)

	first := mustRelease(t, database, item.ID, 4, model.CategoryBorrow)
	n, err := ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, model.NotificationLowStock, n.Kind)
	assert.Equal(t, 4, *n.Quantity)

	again, err := ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Nil(t, again, "the same crossing must not alert twice")

	mustRelease(t, database, item.ID, 1, model.CategoryBorrow)
	again, err = ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	// Cancelling lifts stock back above the threshold and re-arms the alert.
	_, err = SetApproval(ctx, database, first.ID, model.ApprovalCancelled, "")
	require.NoError(t, err)
	assert.Equal(t, 7, stock(t, database, item.ID).Quantity)

	mustRelease(t, database, item.ID, 3, model.CategoryBorrow)
	n, err = ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	assert.NotNil(t, n)

	all, _ := ListNotifications(ctx, database, false, 0)
	assert.Len(t, all, 2)
}

func TestLowStockAlertSkipsHealthyItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Paper", 50)

	n, err := ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestLowStockAlertFollowsStoredThreshold(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	require.NoError(t, SetLowStockThreshold(ctx, database, 10))
	item := mustItem(t, database, "Masks", 12)

	mustRelease(t, database, item.ID, 4, model.CategoryConsumed)
	n, err := ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	require.NotNil(t, n, "8 is at or below a threshold of 10")

	// Topping up to 9 stays under the threshold, so the crossing is the same.
	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)
	balance, err := Credit(ctx, tx, item.ID, 1)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, 9, balance)

	again, err := ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	s, err := Summary(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Threshold)
	assert.Equal(t, 1, s.Counts.LowStock)

	// Restocking past the threshold re-arms the alert.
	restock := 11
	_, err = UpdateItem(ctx, database, item.ID, ItemUpdate{Quantity: &restock})
	require.NoError(t, err)
	mustRelease(t, database, item.ID, 2, model.CategoryConsumed)
	n, err = ClaimLowStockAlert(ctx, database, item.ID)
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestClaimOverdueReleasesOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Projector", 3)

	r := mustRelease(t, database, item.ID, 1, model.CategoryBorrow)
	mustApprove(t, database, r.ID)
	pending := mustRelease(t, database, item.ID, 1, model.CategoryBorrow)

	past := time.Now().UTC().Add(-2 * time.Hour)
	_, err := database.ExecContext(ctx, `UPDATE releases SET expected_return_by = ?`, past)
	require.NoError(t, err)

	created, err := ClaimOverdueReleases(ctx, database, time.Now())
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, r.ID, *created[0].ReleaseID)
	assert.Equal(t, model.NotificationOverdue, created[0].Kind)
	assert.Contains(t, created[0].Message, "Workshop")

	created, err = ClaimOverdueReleases(ctx, database, time.Now())
	require.NoError(t, err)
	assert.Empty(t, created)

	// Approving later makes the other release overdue too.
	mustApprove(t, database, pending.ID)
	created, err = ClaimOverdueReleases(ctx, database, time.Now())
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestClaimDueReminders(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Boiler", 1)

	soon, err := CreateSchedule(ctx, database, ScheduleInput{
		ItemID:         item.ID,
		Category:       model.CategoryRepair,
		Quantity:       1,
		ScheduledDate:  time.Now().Add(time.Hour),
		ReminderBefore: 2 * time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, soon.ReminderAt.Before(time.Now()))

	_, err = CreateSchedule(ctx, database, ScheduleInput{
		ItemID:        item.ID,
		Category:      model.CategoryRefill,
		Quantity:      1,
		ScheduledDate: time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	created, err := ClaimDueReminders(ctx, database, time.Now())
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, soon.ID, *created[0].ScheduleID)

	created, err = ClaimDueReminders(ctx, database, time.Now())
	require.NoError(t, err)
	assert.Empty(t, created)
}
