// Package domain holds the pure escalation logic: SLA windows per emergency
// type and deadline arithmetic. Nothing here touches storage.
package domain

import (
	"time"

	maintdomain "propertyops_backend/internal/maintenance/domain"
)

// MaxLevel caps escalation advancement. Reaching it means every configured
// tier has been notified; the sweep keeps re-checking but stops raising.
const MaxLevel = 5

// slaWindows maps each emergency type to its required first-response window.
var slaWindows = map[maintdomain.EmergencyType]time.Duration{
	maintdomain.EmergencySafety:     10 * time.Minute,
	maintdomain.EmergencySecurity:   15 * time.Minute,
	maintdomain.EmergencyWater:      15 * time.Minute,
	maintdomain.EmergencyElectrical: 20 * time.Minute,
	maintdomain.EmergencyHVAC:       45 * time.Minute,
	maintdomain.EmergencyStructural: 30 * time.Minute,
}

// defaultSLA covers emergency types without an explicit window.
const defaultSLA = 30 * time.Minute

// SLA returns the first-response window for an emergency type.
func SLA(t maintdomain.EmergencyType) time.Duration {
	if d, ok := slaWindows[t]; ok {
		return d
	}
	return defaultSLA
}

// Deadline computes the response deadline for the given level. Each level
// gets a full SLA window from the moment it was entered.
func Deadline(now time.Time, t maintdomain.EmergencyType) time.Time {
	return now.Add(SLA(t)).UTC()
}

// CanRaise reports whether the tracking level may advance further.
func CanRaise(level int) bool {
	return level < MaxLevel
}
