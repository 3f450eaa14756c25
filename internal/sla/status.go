package sla

import (
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// warningFactor bounds the warning band above the target.
const warningFactor = 1.5

// Met reports whether elapsed fits within targetHours.
func Met(elapsed time.Duration, targetHours float64) bool {
	return elapsed.Hours() <= targetHours
}

// Classify returns met/breached once the milestone fired, otherwise
// on_track, warning (up to 1.5x target) or at_risk.
func Classify(elapsed time.Duration, targetHours float64, fired bool) domain.SLAStatus {
	hours := elapsed.Hours()
	if fired {
		if hours <= targetHours {
			return domain.SLAStatusMet
		}
		return domain.SLAStatusBreached
	}
	switch {
	case hours <= targetHours:
		return domain.SLAStatusOnTrack
	case hours <= targetHours*warningFactor:
		return domain.SLAStatusWarning
	default:
		return domain.SLAStatusAtRisk
	}
}
