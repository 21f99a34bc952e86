package store

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/storekeeper/internal/db"
	"github.com/erazemk/storekeeper/internal/model"
)

func dueIn(d time.Duration) *time.Time {
	t := time.Now().UTC().Add(d)
	return &t
}

func mustItem(t *testing.T, database *sql.DB, name string, qty int) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, ItemInput{
		Name:          name,
		MeasuringUnit: "piece",
		Quantity:      qty,
	})
	require.NoError(t, err)
	return item
}

func mustRelease(t *testing.T, database *sql.DB, itemID string, qty int, category string) *model.Release {
	t.Helper()
	r, err := CreateRelease(context.Background(), database, ReleaseInput{
		ItemID:           itemID,
		Qty:              qty,
		ReleasedTo:       "Workshop",
		Category:         category,
		Reason:           "maintenance",
		ExpectedReturnBy: dueIn(72 * time.Hour),
	})
	require.NoError(t, err)
	return r
}

func mustApprove(t *testing.T, database *sql.DB, id string) *model.Release {
	t.Helper()
	r, err := SetApproval(context.Background(), database, id, model.ApprovalApproved, "")
	require.NoError(t, err)
	return r
}

func stock(t *testing.T, database *sql.DB, itemID string) *model.Item {
	t.Helper()
	item, err := GetItem(context.Background(), database, itemID)
	require.NoError(t, err)
	return item
}

func returnOf(releaseID string, qty int, condition string) ReturnInput {
	return ReturnInput{
		ReleaseID:        releaseID,
		QuantityReturned: qty,
		ReturnedBy:       "Ana",
		Condition:        condition,
	}
}

func TestReleaseDeductsStock(t *testing.T) {
	database := db.NewTestDB(t)
	item := mustItem(t, database, "Drill", 10)

	r := mustRelease(t, database, item.ID, 4, model.CategoryBorrow)

	assert.Equal(t, 4, r.QtyReleased)
	assert.Equal(t, 0, r.QtyReturned)
	assert.Equal(t, 4, r.QtyRemaining)
	assert.Equal(t, model.ReturnStatusNone, r.ReturnStatus)
	assert.Equal(t, model.ApprovalPending, r.ApprovalStatus)
	assert.True(t, r.IsReturnable)
	assert.Equal(t, "Drill", r.ItemName)
	assert.Equal(t, 6, stock(t, database, item.ID).Quantity)
}

func TestFullReturnCreditsStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Drill", 10)
	r := mustRelease(t, database, item.ID, 4, model.CategoryBorrow)
	mustApprove(t, database, r.ID)

	release, ret, err := SubmitReturn(ctx, database, returnOf(r.ID, 4, model.ConditionGood))
	require.NoError(t, err)

	assert.Equal(t, 4, release.QtyReturned)
	assert.Equal(t, 0, release.QtyRemaining)
	assert.Equal(t, model.ReturnStatusFull, release.ReturnStatus)
	assert.True(t, ret.Credited)
	assert.Equal(t, "Returned in good condition", ret.Remarks)
	assert.Equal(t, 10, stock(t, database, item.ID).Quantity)

	// Nothing is left to return.
	_, _, err = SubmitReturn(ctx, database, returnOf(r.ID, 1, model.ConditionGood))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestConsumedReleaseRejectsReturns(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Toner", 5)

	r, err := CreateRelease(ctx, database, ReleaseInput{
		ItemID:           item.ID,
		Qty:              1,
		ReleasedTo:       "Office",
		Category:         model.CategoryConsumed,
		Reason:           "printing",
		ExpectedReturnBy: dueIn(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, r.IsReturnable)
	assert.Nil(t, r.ExpectedReturnBy, "consumed releases carry no due date")

	mustApprove(t, database, r.ID)
	_, _, err = SubmitReturn(ctx, database, returnOf(r.ID, 1, model.ConditionGood))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPartialReturns(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Ladder", 5)
	r := mustRelease(t, database, item.ID, 5, model.CategoryRepair)
	mustApprove(t, database, r.ID)

	for i := 0; i < 2; i++ {
		_, _, err := SubmitReturn(ctx, database, returnOf(r.ID, 2, model.ConditionGood))
		require.NoError(t, err)
	}

	got, err := GetRelease(ctx, database, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.QtyReturned)
	assert.Equal(t, 1, got.QtyRemaining)
	assert.Equal(t, model.ReturnStatusPartial, got.ReturnStatus)

	_, _, err = SubmitReturn(ctx, database, returnOf(r.ID, 2, model.ConditionGood))
	assert.ErrorIs(t, err, ErrValidation)

	got, _, err = SubmitReturn(ctx, database, returnOf(r.ID, 1, model.ConditionGood))
	require.NoError(t, err)
	assert.Equal(t, model.ReturnStatusFull, got.ReturnStatus)
	assert.Equal(t, 0, got.QtyRemaining)

	history, err := ListReturns(ctx, database, ReturnFilter{ReleaseID: r.ID})
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestOverReturnDoesNotMutate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Tape", 10)
	r := mustRelease(t, database, item.ID, 3, model.CategoryBorrow)
	mustApprove(t, database, r.ID)

	_, _, err := SubmitReturn(ctx, database, returnOf(r.ID, 4, model.ConditionGood))
	assert.ErrorIs(t, err, ErrValidation)

	got, err := GetRelease(ctx, database, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.QtyReturned)
	assert.Equal(t, 7, stock(t, database, item.ID).Quantity)

	history, _ := ListReturns(ctx, database, ReturnFilter{ReleaseID: r.ID})
	assert.Empty(t, history)
}

func TestReturnRequiresApproval(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Saw", 10)
	r := mustRelease(t, database, item.ID, 2, model.CategoryBorrow)

	_, _, err := SubmitReturn(ctx, database, returnOf(r.ID, 1, model.ConditionGood))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = SetApproval(ctx, database, r.ID, model.ApprovalCancelled, "")
	require.NoError(t, err)
	_, _, err = SubmitReturn(ctx, database, returnOf(r.ID, 1, model.ConditionGood))
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = SubmitReturn(ctx, database, returnOf("missing", 1, model.ConditionGood))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnInputValidation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   ReturnInput
	}{
		{"zero quantity", ReturnInput{ReleaseID: "x", QuantityReturned: 0, ReturnedBy: "Ana", Condition: model.ConditionGood}},
		{"no returner", ReturnInput{ReleaseID: "x", QuantityReturned: 1, ReturnedBy: "  ", Condition: model.ConditionGood}},
		{"bad condition", ReturnInput{ReleaseID: "x", QuantityReturned: 1, ReturnedBy: "Ana", Condition: "soggy"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SubmitReturn(ctx, database, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNonCreditableConditions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, condition := range []string{model.ConditionDamaged, model.ConditionExpired, model.ConditionLost} {
		t.Run(condition, func(t *testing.T) {
			item := mustItem(t, database, "Kit "+condition, 5)
			r := mustRelease(t, database, item.ID, 2, model.CategoryBorrow)
			mustApprove(t, database, r.ID)

			release, ret, err := SubmitReturn(ctx, database, returnOf(r.ID, 2, condition))
			require.NoError(t, err)
			assert.False(t, ret.Credited)
			assert.Equal(t, model.ReturnStatusFull, release.ReturnStatus)
			assert.Equal(t, 3, stock(t, database, item.ID).Quantity)
		})
	}

	item := mustItem(t, database, "Kit other", 5)
	r := mustRelease(t, database, item.ID, 2, model.CategoryBorrow)
	mustApprove(t, database, r.ID)
	_, ret, err := SubmitReturn(ctx, database, returnOf(r.ID, 2, model.ConditionOther))
	require.NoError(t, err)
	assert.True(t, ret.Credited)
	assert.Equal(t, 5, stock(t, database, item.ID).Quantity)
}

func TestReleaseRejections(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Hammer", 3)

	past := time.Now().UTC().Add(-72 * time.Hour)
	valid := ReleaseInput{
		ItemID:           item.ID,
		Qty:              1,
		ReleasedTo:       "Site",
		Category:         model.CategoryBorrow,
		Reason:           "job",
		ExpectedReturnBy: dueIn(24 * time.Hour),
	}

	tests := []struct {
		name   string
		mutate func(in *ReleaseInput)
		want   error
	}{
		{"zero quantity", func(in *ReleaseInput) { in.Qty = 0 }, ErrValidation},
		{"no recipient", func(in *ReleaseInput) { in.ReleasedTo = " " }, ErrValidation},
		{"no reason", func(in *ReleaseInput) { in.Reason = "" }, ErrValidation},
		{"unknown category", func(in *ReleaseInput) { in.Category = "gift" }, ErrValidation},
		{"returnable without due date", func(in *ReleaseInput) { in.ExpectedReturnBy = nil }, ErrValidation},
		{"due date in the past", func(in *ReleaseInput) { in.ExpectedReturnBy = &past }, ErrValidation},
		{"more than on hand", func(in *ReleaseInput) { in.Qty = 4 }, ErrInsufficientStock},
		{"unknown item", func(in *ReleaseInput) { in.ItemID = "missing" }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := CreateRelease(ctx, database, in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 3, stock(t, database, item.ID).Quantity)
		})
	}
}

func TestReleaseOfDeletedItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Old", 3)
	require.NoError(t, DeleteItem(ctx, database, item.ID))

	_, err := CreateRelease(ctx, database, ReleaseInput{
		ItemID:           item.ID,
		Qty:              1,
		ReleasedTo:       "Site",
		Category:         model.CategoryBorrow,
		Reason:           "job",
		ExpectedReturnBy: dueIn(24 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseMarksItemOut(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Pump", 2)
	r := mustRelease(t, database, item.ID, 2, model.CategoryRepair)
	assert.Equal(t, model.ItemStatusOut, stock(t, database, item.ID).CurrentStatus)

	mustApprove(t, database, r.ID)
	_, _, err := SubmitReturn(ctx, database, returnOf(r.ID, 1, model.ConditionGood))
	require.NoError(t, err)

	got := stock(t, database, item.ID)
	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, model.ItemStatusIn, got.CurrentStatus)
}

func TestApprovalTransitions(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Cable", 10)

	r := mustRelease(t, database, item.ID, 3, model.CategoryBorrow)
	_, err := SetApproval(ctx, database, r.ID, model.ApprovalPending, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	approved := mustApprove(t, database, r.ID)
	assert.Equal(t, model.ApprovalApproved, approved.ApprovalStatus)

	_, err = SetApproval(ctx, database, r.ID, model.ApprovalCancelled, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = SetApproval(ctx, database, "missing", model.ApprovalApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelRestoresStock(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Generator", 3)

	r := mustRelease(t, database, item.ID, 3, model.CategoryBorrow)
	assert.Equal(t, model.ItemStatusOut, stock(t, database, item.ID).CurrentStatus)

	cancelled, err := SetApproval(ctx, database, r.ID, model.ApprovalCancelled, "")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalCancelled, cancelled.ApprovalStatus)

	got := stock(t, database, item.ID)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, model.ItemStatusIn, got.CurrentStatus)

	// Cancelled is terminal.
	_, err = SetApproval(ctx, database, r.ID, model.ApprovalApproved, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListReleasesFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Mop", 20)

	r1 := mustRelease(t, database, item.ID, 1, model.CategoryBorrow)
	mustRelease(t, database, item.ID, 1, model.CategoryBorrow)
	mustApprove(t, database, r1.ID)

	pending, err := ListReleases(ctx, database, ReleaseFilter{ApprovalStatus: model.ApprovalPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	// Push the approved release past its due date.
	_, err = database.ExecContext(ctx, `UPDATE releases SET expected_return_by = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Hour), r1.ID)
	require.NoError(t, err)

	overdue, err := ListReleases(ctx, database, ReleaseFilter{Overdue: true})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, r1.ID, overdue[0].ID)
	assert.True(t, overdue[0].Overdue)
}

func TestReleaseInvariantsAfterReturns(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Bolts", 50)
	r := mustRelease(t, database, item.ID, 9, model.CategoryRefill)
	mustApprove(t, database, r.ID)

	for _, qty := range []int{1, 3, 20, 2, 5, 3} {
		SubmitReturn(ctx, database, returnOf(r.ID, qty, model.ConditionGood))

		got, err := GetRelease(ctx, database, r.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.QtyReturned, 0)
		assert.LessOrEqual(t, got.QtyReturned, got.QtyReleased)
		assert.Equal(t, got.QtyReleased-got.QtyReturned, got.QtyRemaining)
		assert.Equal(t, model.DeriveReturnStatus(got.QtyReleased, got.QtyReturned), got.ReturnStatus)
	}

	got, _ := GetRelease(ctx, database, r.ID)
	assert.Equal(t, 9, got.QtyReturned)
}

func TestConcurrentReleasesNeverOverdraw(t *testing.T) {
	database := db.NewTestFileDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Helmet", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, short int
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := CreateRelease(ctx, database, ReleaseInput{
				ItemID:           item.ID,
				Qty:              1,
				ReleasedTo:       "Crew",
				Category:         model.CategoryBorrow,
				Reason:           "shift",
				ExpectedReturnBy: dueIn(24 * time.Hour),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, ErrInsufficientStock):
				short++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, short)
	got := stock(t, database, item.ID)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, model.ItemStatusOut, got.CurrentStatus)
}

func TestConcurrentReturnsNeverOverReturn(t *testing.T) {
	database := db.NewTestFileDB(t)
	ctx := context.Background()
	item := mustItem(t, database, "Radio", 10)
	r := mustRelease(t, database, item.ID, 5, model.CategoryBorrow)
	mustApprove(t, database, r.ID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SubmitReturn(ctx, database, returnOf(r.ID, 2, model.ConditionGood))
		}()
	}
	wg.Wait()

	got, err := GetRelease(ctx, database, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.QtyReturned)
	assert.Equal(t, model.ReturnStatusPartial, got.ReturnStatus)
	assert.Equal(t, 9, stock(t, database, item.ID).Quantity)

	history, _ := ListReturns(ctx, database, ReturnFilter{ReleaseID: r.ID})
	assert.Len(t, history, 2)
}
