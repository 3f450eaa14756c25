package service

import (
	"time"

	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// defaultWindow is used when a report request names no window.
const defaultWindow = 30 * 24 * time.Hour

// Window is the half-open interval [From, To) of a report.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// normalize fills an empty window with the last 30 days and rejects inverted ones.
func (w Window) normalize(now time.Time) (Window, error) {
	if w.To.IsZero() {
		w.To = now.Truncate(time.Minute).Add(time.Minute)
	}
	if w.From.IsZero() {
		w.From = w.To.Add(-defaultWindow)
	}
	if !w.To.After(w.From) {
		return Window{}, apperrors.NewFieldValidationError(apperrors.FieldError{Field: "to", Message: "must be after from"})
	}
	return w, nil
}
