package domain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

var _ = Describe("Ticket status", func() {
	DescribeTable("CanTransition",
		func(from, to domain.TicketStatus, allowed bool) {
			Expect(domain.CanTransition(from, to)).To(Equal(allowed))
		},
		Entry("open to need_response", domain.TicketStatusOpen, domain.TicketStatusNeedResponse, true),
		Entry("open to in_progress", domain.TicketStatusOpen, domain.TicketStatusInProgress, true),
		Entry("open to closed", domain.TicketStatusOpen, domain.TicketStatusClosed, true),
		Entry("open to waiting_customer", domain.TicketStatusOpen, domain.TicketStatusWaitingCustomer, false),
		Entry("in_progress to waiting_customer", domain.TicketStatusInProgress, domain.TicketStatusWaitingCustomer, true),
		Entry("waiting_customer to in_progress", domain.TicketStatusWaitingCustomer, domain.TicketStatusInProgress, true),
		Entry("need_response to open", domain.TicketStatusNeedResponse, domain.TicketStatusOpen, false),
		Entry("self loop", domain.TicketStatusInProgress, domain.TicketStatusInProgress, false),
		Entry("closed to open", domain.TicketStatusClosed, domain.TicketStatusOpen, false),
		Entry("closed to in_progress", domain.TicketStatusClosed, domain.TicketStatusInProgress, false),
	)

	It("should match the edge list for every pair of states", func() {
		edges := map[string]bool{
			"open>need_response":             true,
			"open>in_progress":               true,
			"open>closed":                    true,
			"need_response>in_progress":      true,
			"need_response>waiting_customer": true,
			"need_response>closed":           true,
			"in_progress>need_response":      true,
			"in_progress>waiting_customer":   true,
			"in_progress>closed":             true,
			"waiting_customer>in_progress":   true,
			"waiting_customer>need_response": true,
			"waiting_customer>closed":        true,
		}
		Expect(domain.TicketStatuses).To(HaveLen(5))
		checked := 0
		for _, from := range domain.TicketStatuses {
			for _, to := range domain.TicketStatuses {
				key := string(from) + ">" + string(to)
				Expect(domain.CanTransition(from, to)).To(Equal(edges[key]), key)
				checked++
			}
		}
		Expect(checked).To(Equal(25))
	})

	It("should make closed terminal", func() {
		Expect(domain.AllowedTargets(domain.TicketStatusClosed)).To(BeEmpty())
		for _, from := range domain.TicketStatuses {
			if from == domain.TicketStatusClosed {
				continue
			}
			Expect(domain.CanTransition(from, domain.TicketStatusClosed)).To(BeTrue(), string(from))
			Expect(domain.CanTransition(from, domain.TicketStatusOpen)).To(BeFalse(), string(from))
		}
	})

	It("should return a copy from AllowedTargets", func() {
		targets := domain.AllowedTargets(domain.TicketStatusOpen)
		targets[0] = domain.TicketStatusClosed
		Expect(domain.AllowedTargets(domain.TicketStatusOpen)[0]).To(Equal(domain.TicketStatusNeedResponse))
	})

	DescribeTable("ParseTicketStatus",
		func(raw string, expected domain.TicketStatus, ok bool) {
			status, parsed := domain.ParseTicketStatus(raw)
			Expect(parsed).To(Equal(ok))
			Expect(status).To(Equal(expected))
		},
		Entry("canonical", "in_progress", domain.TicketStatusInProgress, true),
		Entry("mixed case and spaces", "  Waiting_Customer ", domain.TicketStatusWaitingCustomer, true),
		Entry("legacy pending", "pending", domain.TicketStatusInProgress, true),
		Entry("legacy resolved", "resolved", domain.TicketStatusInProgress, true),
		Entry("legacy need_adjustment", "need_adjustment", domain.TicketStatusNeedResponse, true),
		Entry("unknown", "archived", domain.TicketStatus(""), false),
		Entry("empty", "", domain.TicketStatus(""), false),
	)
})
