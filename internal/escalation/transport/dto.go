package transport

import (
	"time"

	"github.com/google/uuid"
)

// UpsertRuleRequest creates or replaces an escalation tier for a property.
type UpsertRuleRequest struct {
	TriggerCondition          string     `json:"triggerCondition" validate:"required,oneof=any safety security water electrical hvac structural"`
	Level                     int        `json:"level" validate:"required,min=1,max=5"`
	Contacts                  []string   `json:"contacts" validate:"required,min=1,dive,max=200"`
	ProviderID                *uuid.UUID `json:"providerId,omitempty"`
	MaxCostAuthorizationCents int64      `json:"maxCostAuthorizationCents" validate:"min=0"`
}

// RuleResponse is a stored escalation rule.
type RuleResponse struct {
	ID                        uuid.UUID  `json:"id"`
	PropertyID                uuid.UUID  `json:"propertyId"`
	TriggerCondition          string     `json:"triggerCondition"`
	Level                     int        `json:"level"`
	Contacts                  []string   `json:"contacts"`
	ProviderID                *uuid.UUID `json:"providerId,omitempty"`
	MaxCostAuthorizationCents int64      `json:"maxCostAuthorizationCents"`
	CreatedAt                 time.Time  `json:"createdAt"`
	UpdatedAt                 time.Time  `json:"updatedAt"`
}

// RuleListResponse wraps a property's escalation rules.
type RuleListResponse struct {
	Items []RuleResponse `json:"items"`
	Total int            `json:"total"`
}

// TrackingResponse is the escalation record for an emergency request.
type TrackingResponse struct {
	ID                uuid.UUID  `json:"id"`
	RequestID         uuid.UUID  `json:"requestId"`
	PropertyID        uuid.UUID  `json:"propertyId"`
	EmergencyType     string     `json:"emergencyType"`
	Level             int        `json:"level"`
	ResponseDeadline  time.Time  `json:"responseDeadline"`
	NotifiedParties   []string   `json:"notifiedParties"`
	FirstResponseAt   *time.Time `json:"firstResponseAt,omitempty"`
	Resolved          bool       `json:"resolved"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	ResolutionMinutes *int       `json:"resolutionMinutes,omitempty"`
	ConfigError       *string    `json:"configError,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
