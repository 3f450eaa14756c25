package service_test

import (
	"context"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/testfixtures"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

// pathTo lists the moves that bring an open ticket to status.
var pathTo = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:            nil,
	domain.TicketStatusNeedResponse:    {domain.TicketStatusNeedResponse},
	domain.TicketStatusInProgress:      {domain.TicketStatusInProgress},
	domain.TicketStatusWaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusWaitingCustomer},
	domain.TicketStatusClosed:          {domain.TicketStatusClosed},
}

var _ = Describe("TicketService.Transition over every pair of states", func() {
	edges := map[domain.TicketStatus][]domain.TicketStatus{
		domain.TicketStatusOpen:            {domain.TicketStatusNeedResponse, domain.TicketStatusInProgress, domain.TicketStatusClosed},
		domain.TicketStatusNeedResponse:    {domain.TicketStatusInProgress, domain.TicketStatusWaitingCustomer, domain.TicketStatusClosed},
		domain.TicketStatusInProgress:      {domain.TicketStatusNeedResponse, domain.TicketStatusWaitingCustomer, domain.TicketStatusClosed},
		domain.TicketStatusWaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusNeedResponse, domain.TicketStatusClosed},
		domain.TicketStatusClosed:          nil,
	}

	It("should apply listed edges and reject the rest without changing the ticket", func() {
		ctx := context.Background()
		env := testfixtures.NewEnv()
		admin := env.CreateUser(domain.RoleSuperAdmin)
		sales := env.CreateUser(domain.RoleSalesperson)

		for _, from := range domain.TicketStatuses {
			for _, to := range domain.TicketStatuses {
				label := string(from) + " -> " + string(to)
				ticket := env.NewGEN(sales, domain.DepartmentDomestics)
				for _, step := range pathTo[from] {
					_, err := env.Tickets.Transition(ctx, admin, ticket.ID, service.TransitionInput{Target: string(step)})
					Expect(err).NotTo(HaveOccurred(), label)
				}

				_, err := env.Tickets.Transition(ctx, admin, ticket.ID, service.TransitionInput{Target: string(to)})
				details, getErr := env.Tickets.GetTicket(ctx, admin, ticket.ID)
				Expect(getErr).NotTo(HaveOccurred(), label)

				if slices.Contains(edges[from], to) {
					Expect(err).NotTo(HaveOccurred(), label)
					Expect(details.Ticket.Status).To(Equal(to), label)
				} else {
					Expect(err).To(HaveErrorCode(apperrors.CodeInvalidTransition), label)
					Expect(details.Ticket.Status).To(Equal(from), label)
				}
			}
		}
	})
})
