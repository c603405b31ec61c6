package model

import "time"

// Gate is the persisted record of a condition gate instance. Owner and
// TriggerThreshold are fixed at creation; PredictedValue changes only
// through the owner-gated setter and Armed only through evaluate/trigger.
type Gate struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	Owner            string `json:"owner"`
	Feed             string `json:"feed"`
	TriggerThreshold uint64 `json:"trigger_threshold"`
	PredictedValue   uint64 `json:"predicted_value"`
	Armed            bool   `json:"armed"`

	ArmedAt        *time.Time `json:"armed_at,omitempty"`
	LastObserved   *uint64    `json:"last_observed,omitempty"`
	LastObservedAt *time.Time `json:"last_observed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GateFilter narrows ListGates results. Zero values mean "no constraint".
type GateFilter struct {
	Owner  string `json:"owner,omitempty"`
	Feed   string `json:"feed,omitempty"`
	Armed  *bool  `json:"armed,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}
