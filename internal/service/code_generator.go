package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// TicketCodeGenerator issues {TYPE}{DEPT}{DDMMYY}{SEQ} codes. The counter is
// incremented through the caller's transaction so a rolled back insert also
// rolls back its sequence number.
type TicketCodeGenerator struct {
	loc *time.Location
}

// NewTicketCodeGenerator builds a generator whose calendar days are taken in loc.
func NewTicketCodeGenerator(loc *time.Location) *TicketCodeGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketCodeGenerator{loc: loc}
}

// Generate reserves the next sequence for (type, department, day) and formats the code.
func (g *TicketCodeGenerator) Generate(ctx context.Context, seqs repository.SequenceRepository, ticketType domain.TicketType, dept domain.DepartmentCode, at time.Time) (string, error) {
	if !ticketType.Valid() {
		return "", apperrors.NewFieldValidationError(apperrors.FieldError{Field: "type", Message: "must be RFQ or GEN"})
	}
	if !dept.Valid() {
		return "", apperrors.NewFieldValidationError(apperrors.FieldError{Field: "department_code", Message: "unknown department"})
	}
	local := at.In(g.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

	seq, err := seqs.Next(ctx, ticketType, dept, day)
	if err != nil {
		return "", storeError(err, "ticket sequence", nil)
	}
	if seq < 1 || seq > domain.MaxDailySequence {
		return "", apperrors.NewConflict(
			fmt.Sprintf("daily ticket sequence exhausted for %s%s", ticketType, dept),
			map[string]any{"sequence": seq},
		)
	}
	return domain.FormatTicketCode(ticketType, dept, day, seq), nil
}
