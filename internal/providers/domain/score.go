// Package domain holds the pure reliability scoring logic. The score and the
// status derived from it are always recomputed from stored counters and
// active penalty points; neither is ever persisted.
package domain

// Status is the derived standing of a provider.
type Status string

const (
	StatusActive    Status = "active"
	StatusWarning   Status = "warning"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
)

// Score weights and thresholds.
const (
	noShowWeight        = 40.0
	ratingShortfallUnit = 10.0

	activeThreshold    = 70.0
	warningThreshold   = 40.0
	suspendedThreshold = 15.0
)

// Counters are the raw ledger counters for one provider.
type Counters struct {
	TotalJobs     int
	CompletedJobs int
	CancelledJobs int
	NoShowJobs    int
	RatingSum     int
	RatingCount   int
}

// AvgRating returns the mean tenant rating, or 5 when unrated. A provider
// starts with the benefit of the doubt.
func (c Counters) AvgRating() float64 {
	if c.RatingCount == 0 {
		return 5
	}
	return float64(c.RatingSum) / float64(c.RatingCount)
}

// NoShowRate returns the fraction of jobs the provider failed to show for.
func (c Counters) NoShowRate() float64 {
	if c.TotalJobs == 0 {
		return 0
	}
	return float64(c.NoShowJobs) / float64(c.TotalJobs)
}

// Score computes the reliability score on a 0..100 scale:
//
//	100 − active penalty points − noShowRate×40 − (5−avgRating)×10
//
// clamped into [0,100].
func Score(c Counters, activePenaltyPoints int) float64 {
	score := 100.0
	score -= float64(activePenaltyPoints)
	score -= c.NoShowRate() * noShowWeight
	score -= (5 - c.AvgRating()) * ratingShortfallUnit

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// StatusForScore derives the provider standing from the score.
func StatusForScore(score float64) Status {
	switch {
	case score >= activeThreshold:
		return StatusActive
	case score >= warningThreshold:
		return StatusWarning
	case score >= suspendedThreshold:
		return StatusSuspended
	default:
		return StatusBanned
	}
}

// Eligible reports whether a provider in the given standing may take work.
func Eligible(s Status) bool {
	return s == StatusActive || s == StatusWarning
}
