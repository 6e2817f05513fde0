package domain

import "testing"

func TestCanTransition_AllowList(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusOpen, StatusInReview, true},
		{StatusOpen, StatusClosed, true}, // withdrawal
		{StatusOpen, StatusMediation, false},
		{StatusOpen, StatusResolved, false},

		{StatusInReview, StatusMediation, true},
		{StatusInReview, StatusResolved, false},
		{StatusInReview, StatusClosed, false},
		{StatusInReview, StatusOpen, false},

		{StatusMediation, StatusResolved, true},
		{StatusMediation, StatusClosed, false},
		{StatusMediation, StatusInReview, false},

		{StatusResolved, StatusClosed, true},
		{StatusResolved, StatusMediation, false},

		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusInReview, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	if !StatusClosed.IsTerminal() {
		t.Error("closed must be terminal")
	}
	for _, s := range []Status{StatusOpen, StatusInReview, StatusMediation, StatusResolved} {
		if s.IsTerminal() {
			t.Errorf("expected %q not to be terminal", s)
		}
	}
}

func TestStatus_Valid(t *testing.T) {
	if !StatusMediation.Valid() {
		t.Error("expected mediation to be valid")
	}
	if Status("escalated").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

func TestPenaltyWorthy(t *testing.T) {
	cases := []struct {
		disputeType Type
		want        bool
	}{
		{TypeQuality, true},
		{TypeNoShow, true},
		{TypeConduct, true},
		{TypeBilling, false},
		{TypeDamage, false},
		{TypeOther, false},
	}
	for _, tc := range cases {
		if got := PenaltyWorthy(tc.disputeType); got != tc.want {
			t.Errorf("PenaltyWorthy(%q) = %v, want %v", tc.disputeType, got, tc.want)
		}
	}
}
