package domain

import "time"

// Configuration keys stored in the configurations table.
const (
	ConfigKeyCancellationLead = "tiempo_cancelacion"
	ConfigKeyReservationLead  = "tiempo_minimo_reserva"
)

// ConfigEntry is a row of the generic key/value configurations table.
// Value is stored as text; for lead-time keys it holds minutes.
type ConfigEntry struct {
	Key         string     `json:"key"`
	Value       string     `json:"value"`
	Active      bool       `json:"active"`
	Description string     `json:"description,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ConfigSource tells where a resolved time window came from.
type ConfigSource string

const (
	SourceConfig  ConfigSource = "config"
	SourceDefault ConfigSource = "default"
)

// TimeWindowConfig is a resolved lead-time rule.
type TimeWindowConfig struct {
	Minutes  int          `json:"minutes"`
	Active   bool         `json:"active"`
	Degraded bool         `json:"degraded"`
	Source   ConfigSource `json:"source"`
}

// DecisionReason classifies a cancellation or reservation decision.
type DecisionReason string

const (
	ReasonAllowed          DecisionReason = "allowed"
	ReasonRuleInactive     DecisionReason = "rule_inactive"
	ReasonTooClose         DecisionReason = "too_close"
	ReasonAlreadyOccurred  DecisionReason = "already_occurred"
	ReasonAlreadyCancelled DecisionReason = "already_cancelled"
	ReasonNotCancellable   DecisionReason = "not_cancellable"
	ReasonInPast           DecisionReason = "in_past"
)

// Decision is the outcome of a time-window evaluation, ready for display.
type Decision struct {
	Allowed      bool           `json:"allowed"`
	Reason       DecisionReason `json:"reason"`
	Message      string         `json:"message,omitempty"`
	LeadMinutes  int            `json:"lead_minutes"`
	LeadTime     string         `json:"lead_time"`
	MinutesUntil float64        `json:"minutes_until"`
	RuleActive   bool           `json:"rule_active"`
	Degraded     bool           `json:"degraded"`
}

// TimeWindowSettings is returned by GET /v1/settings/time-windows.
type TimeWindowSettings struct {
	Cancellation TimeWindowView `json:"cancellation"`
	Reservation  TimeWindowView `json:"reservation"`
}

// TimeWindowView is a resolved window plus its display text.
type TimeWindowView struct {
	Key string `json:"key"`
	TimeWindowConfig
	LeadTime string `json:"lead_time"`
}
