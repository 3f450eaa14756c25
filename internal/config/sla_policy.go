package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const holidayLayout = "2006-01-02"

// SLATargets holds target hours per milestone. Zero means "not set here".
type SLATargets struct {
	FirstResponseHours float64 `yaml:"first_response_hours"`
	ResolutionHours    float64 `yaml:"resolution_hours"`
}

// SLAOverride applies to one department and ticket type.
type SLAOverride struct {
	Department string     `yaml:"department"`
	TicketType string     `yaml:"ticket_type"`
	Targets    SLATargets `yaml:",inline"`
}

// SLAPolicy is the SLA_POLICY_FILE document.
//
//	defaults:
//	  first_response_hours: 4
//	  resolution_hours: 48
//	departments:
//	  SAL: {first_response_hours: 2}
//	overrides:
//	  - {department: EXI, ticket_type: RFQ, resolution_hours: 24}
//	holidays: ["2025-12-25"]
type SLAPolicy struct {
	Defaults    SLATargets            `yaml:"defaults"`
	Departments map[string]SLATargets `yaml:"departments"`
	Overrides   []SLAOverride         `yaml:"overrides"`
	Holidays    []string              `yaml:"holidays"`
}

// DefaultSLAPolicy returns 4 business hours to first response and 48 to resolution.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		Defaults: SLATargets{FirstResponseHours: 4, ResolutionHours: 48},
	}
}

// LoadSLAPolicy reads and validates a YAML policy file. Missing defaults
// are filled from DefaultSLAPolicy.
func LoadSLAPolicy(path string) (*SLAPolicy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy: %w", err)
	}
	return ParseSLAPolicy(raw)
}

// ParseSLAPolicy decodes a YAML policy document.
func ParseSLAPolicy(raw []byte) (*SLAPolicy, error) {
	var policy SLAPolicy
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return nil, fmt.Errorf("parse sla policy: %w", err)
	}
	defaults := DefaultSLAPolicy().Defaults
	if policy.Defaults.FirstResponseHours == 0 {
		policy.Defaults.FirstResponseHours = defaults.FirstResponseHours
	}
	if policy.Defaults.ResolutionHours == 0 {
		policy.Defaults.ResolutionHours = defaults.ResolutionHours
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// Validate rejects negative targets and malformed holiday dates.
func (p SLAPolicy) Validate() error {
	check := func(scope string, t SLATargets) error {
		if t.FirstResponseHours < 0 || t.ResolutionHours < 0 {
			return fmt.Errorf("sla policy %s: target hours must not be negative", scope)
		}
		return nil
	}
	if err := check("defaults", p.Defaults); err != nil {
		return err
	}
	for dept, targets := range p.Departments {
		if err := check("department "+dept, targets); err != nil {
			return err
		}
	}
	for _, o := range p.Overrides {
		if o.Department == "" || o.TicketType == "" {
			return fmt.Errorf("sla policy override requires department and ticket_type")
		}
		if err := check("override "+o.Department+"/"+o.TicketType, o.Targets); err != nil {
			return err
		}
	}
	_, err := p.HolidayDates()
	return err
}

// HolidayDates parses the holiday list.
func (p SLAPolicy) HolidayDates() ([]time.Time, error) {
	out := make([]time.Time, 0, len(p.Holidays))
	for _, raw := range p.Holidays {
		day, err := time.Parse(holidayLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("sla policy holiday %q: %w", raw, err)
		}
		out = append(out, day)
	}
	return out, nil
}
