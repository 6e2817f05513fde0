// Package domain holds the pure workflow logic for maintenance requests:
// closed status enums, the transition allow-list, request classification, and
// approval routing. Nothing in this package touches storage or transport.
package domain

// Status is the canonical lifecycle state of a maintenance request.
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusApproved   Status = "approved"
	StatusDenied     Status = "denied"
	StatusBidding    Status = "bidding"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ApprovalStatus is the approval outcome tracked alongside the workflow state.
type ApprovalStatus string

const (
	ApprovalPending     ApprovalStatus = "pending"
	ApprovalApproved    ApprovalStatus = "approved"
	ApprovalDenied      ApprovalStatus = "denied"
	ApprovalNotRequired ApprovalStatus = "not_required"
)

// Priority is the classified urgency of a request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Category groups requests by the kind of work required.
type Category string

const (
	CategoryPlumbing    Category = "plumbing"
	CategoryElectrical  Category = "electrical"
	CategoryHVAC        Category = "hvac"
	CategoryAppliance   Category = "appliance"
	CategoryStructural  Category = "structural"
	CategorySecurity    Category = "security"
	CategoryPest        Category = "pest_control"
	CategoryLandscaping Category = "landscaping"
	CategoryCleaning    Category = "cleaning"
	CategoryOther       Category = "other"
)

// EmergencyType categorizes emergencies for SLA selection.
type EmergencyType string

const (
	EmergencyNone       EmergencyType = ""
	EmergencySafety     EmergencyType = "safety"
	EmergencySecurity   EmergencyType = "security"
	EmergencyWater      EmergencyType = "water"
	EmergencyElectrical EmergencyType = "electrical"
	EmergencyHVAC       EmergencyType = "hvac"
	EmergencyStructural EmergencyType = "structural"
)

// PaymentResponsibility records who pays for the work.
type PaymentResponsibility string

const (
	PaymentLandlord PaymentResponsibility = "landlord"
	PaymentTenant   PaymentResponsibility = "tenant"
	PaymentSplit    PaymentResponsibility = "split"
)

// transitions is the explicit allow-list of workflow edges. Any edge not
// listed here is illegal regardless of who asks.
var transitions = map[Status][]Status{
	StatusSubmitted:  {StatusApproved, StatusDenied, StatusCancelled},
	StatusApproved:   {StatusBidding, StatusAssigned, StatusCancelled},
	StatusBidding:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusDenied:     nil,
	StatusCompleted:  nil,
	StatusCancelled:  nil,
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

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryPlumbing, CategoryElectrical, CategoryHVAC, CategoryAppliance,
		CategoryStructural, CategorySecurity, CategoryPest, CategoryLandscaping,
		CategoryCleaning, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// moreUrgent returns true if a outranks b.
func moreUrgent(a, b Priority) bool {
	return priorityRank(a) > priorityRank(b)
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}
