// Package domain holds the dispute state machine.
package domain

// Status is the lifecycle state of a dispute.
type Status string

const (
	StatusOpen      Status = "open"
	StatusInReview  Status = "in_review"
	StatusMediation Status = "mediation"
	StatusResolved  Status = "resolved"
	StatusClosed    Status = "closed"
)

// Type categorizes what the dispute is about.
type Type string

const (
	TypeQuality Type = "quality"
	TypeBilling Type = "billing"
	TypeDamage  Type = "damage"
	TypeNoShow  Type = "no_show"
	TypeConduct Type = "conduct"
	TypeOther   Type = "other"
)

// transitions is the explicit allow-list of dispute edges. A dispute may be
// withdrawn (closed) directly from open; resolution is only reachable through
// mediation.
var transitions = map[Status][]Status{
	StatusOpen:      {StatusInReview, StatusClosed},
	StatusInReview:  {StatusMediation},
	StatusMediation: {StatusResolved},
	StatusResolved:  {StatusClosed},
	StatusClosed:    nil,
}

// CanTransition reports whether the edge from → to is in the allow-list.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edges leave the given state.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether s is a known dispute status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// PenaltyWorthy reports whether resolving a dispute of this type against the
// provider should feed the reliability ledger.
func PenaltyWorthy(t Type) bool {
	switch t {
	case TypeQuality, TypeNoShow, TypeConduct:
		return true
	}
	return false
}
