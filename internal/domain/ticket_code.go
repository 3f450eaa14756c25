package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MaxDailySequence is the largest sequence representable in a ticket code.
const MaxDailySequence = 999

const ticketCodeDateLayout = "020106"

var ticketCodePattern = regexp.MustCompile(`^(RFQ|GEN)([A-Z]{3})(\d{6})(\d{3})$`)

// TicketCodeParts is the decoded form of a ticket code.
type TicketCodeParts struct {
	Type       TicketType
	Department DepartmentCode
	Date       time.Time
	Sequence   int
}

// FormatTicketCode renders {TYPE}{DEPT}{DDMMYY}{SEQ:03}.
func FormatTicketCode(ticketType TicketType, dept DepartmentCode, day time.Time, seq int) string {
	return fmt.Sprintf("%s%s%s%03d", ticketType, dept, day.Format(ticketCodeDateLayout), seq)
}

// ParseTicketCode validates and splits a ticket code.
func ParseTicketCode(code string) (TicketCodeParts, error) {
	match := ticketCodePattern.FindStringSubmatch(code)
	if match == nil {
		return TicketCodeParts{}, fmt.Errorf("malformed ticket code %q", code)
	}
	day, err := time.Parse(ticketCodeDateLayout, match[3])
	if err != nil {
		return TicketCodeParts{}, fmt.Errorf("ticket code date: %w", err)
	}
	seq, _ := strconv.Atoi(match[4])
	return TicketCodeParts{
		Type:       TicketType(match[1]),
		Department: DepartmentCode(match[2]),
		Date:       day,
		Sequence:   seq,
	}, nil
}
