package domain

import (
	"math"
	"testing"
)

func TestScore_NewProviderStartsAtFull(t *testing.T) {
	// No jobs, no ratings, no penalties: unrated providers get the benefit
	// of the doubt.
	if got := Score(Counters{}, 0); got != 100 {
		t.Fatalf("Score = %v, want 100", got)
	}
}

func TestScore_Components(t *testing.T) {
	cases := []struct {
		name     string
		counters Counters
		penalty  int
		want     float64
	}{
		{
			name:    "penalty points subtract directly",
			penalty: 25,
			want:    75,
		},
		{
			name:     "no-show rate weighted by 40",
			counters: Counters{TotalJobs: 10, CompletedJobs: 8, NoShowJobs: 2},
			want:     92, // 100 - 0.2*40
		},
		{
			name:     "rating shortfall weighted by 10",
			counters: Counters{TotalJobs: 4, CompletedJobs: 4, RatingSum: 12, RatingCount: 4},
			want:     80, // avg 3 → (5-3)*10
		},
		{
			name:     "all components combine",
			counters: Counters{TotalJobs: 10, CompletedJobs: 7, NoShowJobs: 1, RatingSum: 28, RatingCount: 7},
			penalty:  10,
			want:     76, // 100 - 10 - 0.1*40 - (5-4)*10
		},
		{
			name:     "score clamps at zero",
			counters: Counters{TotalJobs: 4, NoShowJobs: 4, RatingSum: 4, RatingCount: 4},
			penalty:  50,
			want:     0, // 100 - 50 - 40 - 40 = -30
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Score(tc.counters, tc.penalty)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Score = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCounters_AvgRating(t *testing.T) {
	if got := (Counters{}).AvgRating(); got != 5 {
		t.Fatalf("unrated AvgRating = %v, want 5", got)
	}
	if got := (Counters{RatingSum: 7, RatingCount: 2}).AvgRating(); got != 3.5 {
		t.Fatalf("AvgRating = %v, want 3.5", got)
	}
}

func TestCounters_NoShowRate(t *testing.T) {
	if got := (Counters{}).NoShowRate(); got != 0 {
		t.Fatalf("zero-job NoShowRate = %v, want 0", got)
	}
	if got := (Counters{TotalJobs: 8, NoShowJobs: 2}).NoShowRate(); got != 0.25 {
		t.Fatalf("NoShowRate = %v, want 0.25", got)
	}
}

func TestStatusForScore_Thresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  Status
	}{
		{100, StatusActive},
		{70, StatusActive},
		{69.9, StatusWarning},
		{40, StatusWarning},
		{39.9, StatusSuspended},
		{15, StatusSuspended},
		{14.9, StatusBanned},
		{0, StatusBanned},
	}

	for _, tc := range cases {
		if got := StatusForScore(tc.score); got != tc.want {
			t.Errorf("StatusForScore(%v) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestEligible(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusActive, true},
		{StatusWarning, true},
		{StatusSuspended, false},
		{StatusBanned, false},
	}
	for _, tc := range cases {
		if got := Eligible(tc.status); got != tc.want {
			t.Errorf("Eligible(%q) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
