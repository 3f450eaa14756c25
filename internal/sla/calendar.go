// Package sla implements the business-hours calendar, SLA target resolution
// and the status classification used by the SLA tracker.
package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/config"
)

const dayKeyLayout = "2006-01-02"

// Calendar knows which instants count as business time.
type Calendar struct {
	loc       *time.Location
	startHour int
	endHour   int
	holidays  map[string]struct{}
}

// NewCalendar builds a calendar for the given working window. Holidays are
// matched by calendar date in loc.
func NewCalendar(loc *time.Location, startHour, endHour int, holidays []time.Time) (*Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return nil, fmt.Errorf("invalid business window %d-%d", startHour, endHour)
	}
	c := &Calendar{
		loc:       loc,
		startHour: startHour,
		endHour:   endHour,
		holidays:  make(map[string]struct{}, len(holidays)),
	}
	for _, h := range holidays {
		c.holidays[h.Format(dayKeyLayout)] = struct{}{}
	}
	return c, nil
}

// DefaultCalendar is 08:00-17:00 UTC, Monday to Friday, no holidays.
func DefaultCalendar() *Calendar {
	c, _ := NewCalendar(time.UTC, 8, 17, nil)
	return c
}

// NewCalendarFromConfig combines the business window and the policy holidays.
func NewCalendarFromConfig(business config.BusinessHoursConfig, policy config.SLAPolicy) (*Calendar, error) {
	holidays, err := policy.HolidayDates()
	if err != nil {
		return nil, err
	}
	return NewCalendar(business.Location(), business.DayStartHour, business.DayEndHour, holidays)
}

// Location returns the calendar's timezone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// IsBusinessDay reports whether the calendar date of t (in the calendar's
// timezone) is a weekday and not a holiday.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	local := t.In(c.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[local.Format(dayKeyLayout)]
	return !holiday
}

// BusinessHoursElapsed sums the parts of [start, end) that fall inside the
// working window on business days. It returns zero when end is not after start.
func (c *Calendar) BusinessHoursElapsed(start, end time.Time) time.Duration {
	if !end.After(start) {
		return 0
	}
	s := start.In(c.loc)
	e := end.In(c.loc)

	var total time.Duration
	day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, c.loc)
	for day.Before(e) {
		if c.IsBusinessDay(day) {
			open := time.Date(day.Year(), day.Month(), day.Day(), c.startHour, 0, 0, 0, c.loc)
			closing := time.Date(day.Year(), day.Month(), day.Day(), c.endHour, 0, 0, 0, c.loc)
			total += overlap(s, e, open, closing)
		}
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, c.loc)
	}
	return total
}

// DayLength is the length of one full business day.
func (c *Calendar) DayLength() time.Duration {
	return time.Duration(c.endHour-c.startHour) * time.Hour
}

func overlap(s, e, open, closing time.Time) time.Duration {
	from := s
	if open.After(from) {
		from = open
	}
	to := e
	if closing.Before(to) {
		to = closing
	}
	if !to.After(from) {
		return 0
	}
	return to.Sub(from)
}
