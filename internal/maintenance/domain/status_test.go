package domain

import "testing"

func TestCanTransition_AllowList(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusSubmitted, StatusApproved, true},
		{StatusSubmitted, StatusDenied, true},
		{StatusSubmitted, StatusCancelled, true},
		{StatusSubmitted, StatusBidding, false},
		{StatusSubmitted, StatusCompleted, false},

		{StatusApproved, StatusBidding, true},
		{StatusApproved, StatusAssigned, true},
		{StatusApproved, StatusCancelled, true},
		{StatusApproved, StatusInProgress, false},

		{StatusBidding, StatusAssigned, true},
		{StatusBidding, StatusCancelled, true},
		{StatusBidding, StatusApproved, false},

		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusCancelled, true},
		{StatusAssigned, StatusCompleted, false},

		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusBidding, false},

		// No edges leave terminal states.
		{StatusDenied, StatusSubmitted, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCancelled, StatusSubmitted, false},
		{StatusCompleted, StatusCancelled, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusDenied, StatusCompleted, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %q to be terminal", s)
		}
	}

	live := []Status{StatusSubmitted, StatusApproved, StatusBidding, StatusAssigned, StatusInProgress}
	for _, s := range live {
		if s.IsTerminal() {
			t.Errorf("expected %q not to be terminal", s)
		}
	}
}

func TestStatus_Valid(t *testing.T) {
	if !StatusSubmitted.Valid() {
		t.Error("expected submitted to be valid")
	}
	if Status("archived").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory(CategoryPlumbing) {
		t.Error("expected plumbing to be valid")
	}
	if ValidCategory(Category("painting")) {
		t.Error("expected unknown category to be invalid")
	}
}

func TestValidPriority(t *testing.T) {
	if !ValidPriority(PriorityUrgent) {
		t.Error("expected urgent to be valid")
	}
	if ValidPriority(Priority("critical")) {
		t.Error("expected unknown priority to be invalid")
	}
}
