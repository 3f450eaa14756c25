package domain

// Milestone identifies an SLA checkpoint.
type Milestone string

const (
	MilestoneFirstResponse Milestone = "first_response"
	MilestoneResolved      Milestone = "resolved"
)

// SLAStatus classifies progress against a target.
type SLAStatus string

const (
	SLAStatusOnTrack  SLAStatus = "on_track"
	SLAStatusWarning  SLAStatus = "warning"
	SLAStatusAtRisk   SLAStatus = "at_risk"
	SLAStatusMet      SLAStatus = "met"
	SLAStatusBreached SLAStatus = "breached"
)

// SLARecord holds the targets and outcomes for one ticket.
type SLARecord struct {
	TicketID                 string  `json:"ticket_id"`
	FirstResponseTargetHours float64 `json:"first_response_target_hours"`
	FirstResponseMet         *bool   `json:"first_response_met,omitempty"`
	ResolutionTargetHours    float64 `json:"resolution_target_hours"`
	ResolutionMet            *bool   `json:"resolution_met,omitempty"`
}
