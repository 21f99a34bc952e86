package model

import (
	"testing"
	"time"
)

func TestDeriveReturnStatus(t *testing.T) {
	tests := []struct {
		released, returned int
		want               string
	}{
		{4, 0, ReturnStatusNone},
		{4, 1, ReturnStatusPartial},
		{4, 3, ReturnStatusPartial},
		{4, 4, ReturnStatusFull},
		{1, 1, ReturnStatusFull},
	}

	for _, tt := range tests {
		if got := DeriveReturnStatus(tt.released, tt.returned); got != tt.want {
			t.Errorf("DeriveReturnStatus(%d, %d) = %q, want %q", tt.released, tt.returned, got, tt.want)
		}
	}
}

func TestIsReturnableCategory(t *testing.T) {
	for _, c := range []string{CategoryRepair, CategoryRefill, CategoryReplace, CategoryBorrow} {
		if !IsReturnableCategory(c) {
			t.Errorf("expected %q to be returnable", c)
		}
	}
	if IsReturnableCategory(CategoryConsumed) {
		t.Error("consumed must not be returnable")
	}
	if IsReturnableCategory("gift") {
		t.Error("unknown category must not be returnable")
	}
}

func TestReleaseDeriveOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		r    Release
		want bool
	}{
		{"approved past due", Release{QtyReleased: 3, IsReturnable: true, ApprovalStatus: ApprovalApproved, ExpectedReturnBy: &past}, true},
		{"not yet due", Release{QtyReleased: 3, IsReturnable: true, ApprovalStatus: ApprovalApproved, ExpectedReturnBy: &future}, false},
		{"pending", Release{QtyReleased: 3, IsReturnable: true, ApprovalStatus: ApprovalPending, ExpectedReturnBy: &past}, false},
		{"fully returned", Release{QtyReleased: 3, QtyReturned: 3, IsReturnable: true, ApprovalStatus: ApprovalApproved, ExpectedReturnBy: &past}, false},
		{"no due date", Release{QtyReleased: 3, IsReturnable: true, ApprovalStatus: ApprovalApproved}, false},
	}

	for _, tt := range tests {
		tt.r.Derive(now)
		if tt.r.Overdue != tt.want {
			t.Errorf("%s: Overdue = %v, want %v", tt.name, tt.r.Overdue, tt.want)
		}
		if tt.r.QtyRemaining != tt.r.QtyReleased-tt.r.QtyReturned {
			t.Errorf("%s: QtyRemaining = %d", tt.name, tt.r.QtyRemaining)
		}
	}
}

func TestIsCreditable(t *testing.T) {
	want := map[string]bool{
		ConditionGood:    true,
		ConditionOther:   true,
		ConditionDamaged: false,
		ConditionExpired: false,
		ConditionLost:    false,
	}
	for c, w := range want {
		if got := IsCreditable(c); got != w {
			t.Errorf("IsCreditable(%q) = %v, want %v", c, got, w)
		}
	}
}

func TestReminderTime(t *testing.T) {
	scheduled := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	explicit := time.Date(2026, 4, 30, 8, 0, 0, 0, time.UTC)

	if got := ReminderTime(scheduled, &explicit, time.Hour); !got.Equal(explicit) {
		t.Errorf("explicit time should win, got %v", got)
	}
	if got := ReminderTime(scheduled, nil, 90*time.Second); !got.Equal(scheduled.Add(-90 * time.Second)) {
		t.Errorf("offset not applied, got %v", got)
	}
	if got := ReminderTime(scheduled, nil, 0); !got.Equal(scheduled) {
		t.Errorf("expected scheduled date, got %v", got)
	}
}
