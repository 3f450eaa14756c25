package domain

import "strings"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "open"
	TicketStatusNeedResponse    TicketStatus = "need_response"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusClosed          TicketStatus = "closed"
)

// TicketStatuses lists the canonical states.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusNeedResponse,
	TicketStatusInProgress,
	TicketStatusWaitingCustomer,
	TicketStatusClosed,
}

// legacyStatuses maps historical schema values onto the five-state model.
var legacyStatuses = map[string]TicketStatus{
	"pending":         TicketStatusInProgress,
	"resolved":        TicketStatusInProgress,
	"need_adjustment": TicketStatusNeedResponse,
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:            {TicketStatusNeedResponse, TicketStatusInProgress, TicketStatusClosed},
	TicketStatusNeedResponse:    {TicketStatusInProgress, TicketStatusWaitingCustomer, TicketStatusClosed},
	TicketStatusInProgress:      {TicketStatusNeedResponse, TicketStatusWaitingCustomer, TicketStatusClosed},
	TicketStatusWaitingCustomer: {TicketStatusInProgress, TicketStatusNeedResponse, TicketStatusClosed},
	TicketStatusClosed:          {},
}

// ParseTicketStatus normalizes a raw status, accepting legacy aliases.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := legacyStatuses[value]; ok {
		return mapped, true
	}
	status := TicketStatus(value)
	if _, ok := allowedTransitions[status]; ok {
		return status, true
	}
	return "", false
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to TicketStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the states reachable from the given one.
func AllowedTargets(from TicketStatus) []TicketStatus {
	return append([]TicketStatus(nil), allowedTransitions[from]...)
}
