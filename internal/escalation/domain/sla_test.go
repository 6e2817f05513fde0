package domain

import (
	"testing"
	"time"

	maintdomain "propertyops_backend/internal/maintenance/domain"
)

func TestSLA_WindowsPerEmergencyType(t *testing.T) {
	cases := []struct {
		emergencyType maintdomain.EmergencyType
		want          time.Duration
	}{
		{maintdomain.EmergencySafety, 10 * time.Minute},
		{maintdomain.EmergencySecurity, 15 * time.Minute},
		{maintdomain.EmergencyWater, 15 * time.Minute},
		{maintdomain.EmergencyElectrical, 20 * time.Minute},
		{maintdomain.EmergencyHVAC, 45 * time.Minute},
		{maintdomain.EmergencyStructural, 30 * time.Minute},
		{maintdomain.EmergencyNone, 30 * time.Minute},
		{maintdomain.EmergencyType("biohazard"), 30 * time.Minute},
	}

	for _, tc := range cases {
		if got := SLA(tc.emergencyType); got != tc.want {
			t.Errorf("SLA(%q) = %v, want %v", tc.emergencyType, got, tc.want)
		}
	}
}

func TestDeadline_AddsFullWindowFromNow(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	got := Deadline(now, maintdomain.EmergencySafety)
	if want := now.Add(10 * time.Minute); !got.Equal(want) {
		t.Fatalf("Deadline = %v, want %v", got, want)
	}

	// Each raised level gets a fresh window from the moment it was entered.
	later := now.Add(10 * time.Minute)
	got = Deadline(later, maintdomain.EmergencySafety)
	if want := later.Add(10 * time.Minute); !got.Equal(want) {
		t.Fatalf("Deadline = %v, want %v", got, want)
	}
}

func TestDeadline_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, loc)

	got := Deadline(now, maintdomain.EmergencyWater)
	if got.Location() != time.UTC {
		t.Fatalf("Deadline location = %v, want UTC", got.Location())
	}
	if want := now.Add(15 * time.Minute); !got.Equal(want) {
		t.Fatalf("Deadline = %v, want %v", got, want)
	}
}

func TestCanRaise(t *testing.T) {
	for level := 1; level < MaxLevel; level++ {
		if !CanRaise(level) {
			t.Errorf("CanRaise(%d) = false, want true", level)
		}
	}
	if CanRaise(MaxLevel) {
		t.Errorf("CanRaise(%d) = true, level is capped", MaxLevel)
	}
	if CanRaise(MaxLevel + 1) {
		t.Error("CanRaise beyond the cap must be false")
	}
}
