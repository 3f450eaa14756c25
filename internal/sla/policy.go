package sla

import (
	"strings"

	"github.com/spec-kit/logistics-ticketing/internal/config"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// Targets are the hours allowed per milestone.
type Targets struct {
	FirstResponseHours float64
	ResolutionHours    float64
}

// Policy resolves SLA targets for a new ticket.
type Policy struct {
	cfg config.SLAPolicy
}

// NewPolicy wraps a loaded policy document.
func NewPolicy(cfg config.SLAPolicy) *Policy {
	return &Policy{cfg: cfg}
}

// Resolve picks each target from the most specific source that sets it:
// department and type override, department override, the department's
// default hours (resolution only), then the global defaults.
func (p *Policy) Resolve(dept domain.Department, ticketType domain.TicketType) Targets {
	targets := Targets{}
	for _, o := range p.cfg.Overrides {
		if strings.EqualFold(o.Department, string(dept.Code)) && strings.EqualFold(o.TicketType, string(ticketType)) {
			targets = fill(targets, o.Targets)
		}
	}
	if deptTargets, ok := p.cfg.Departments[string(dept.Code)]; ok {
		targets = fill(targets, deptTargets)
	}
	if targets.ResolutionHours == 0 && dept.DefaultSLAHours > 0 {
		targets.ResolutionHours = dept.DefaultSLAHours
	}
	return fill(targets, p.cfg.Defaults)
}

func fill(t Targets, src config.SLATargets) Targets {
	if t.FirstResponseHours == 0 {
		t.FirstResponseHours = src.FirstResponseHours
	}
	if t.ResolutionHours == 0 {
		t.ResolutionHours = src.ResolutionHours
	}
	return t
}
