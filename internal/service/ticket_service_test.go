package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/testfixtures"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

func outcome(o domain.CloseOutcome) *domain.CloseOutcome { return &o }

func reason(r domain.LostReason) *domain.LostReason { return &r }

var _ = Describe("TicketService", func() {
	var (
		ctx     context.Context
		env     *testfixtures.Env
		admin   domain.Actor
		sales   domain.Actor
		manager domain.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = testfixtures.NewEnv()
		admin = env.CreateUser(domain.RoleSuperAdmin)
		sales = env.CreateUser(domain.RoleSalesperson)
		manager = env.CreateUser(domain.RoleEximOpsManager)
	})

	Describe("CreateTicket", func() {
		It("should open the ticket with a code and an SLA record", func() {
			ticket := env.NewRFQ(sales, domain.DepartmentExim)
			Expect(ticket.Code).To(Equal("RFQEXI060125001"))
			Expect(ticket.Status).To(Equal(domain.TicketStatusOpen))
			Expect(ticket.CreatedBy).To(Equal(sales.ID))

			record, err := env.Store.Repos().SLA.GetByTicket(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.FirstResponseTargetHours).To(Equal(4.0))
			Expect(record.ResolutionTargetHours).To(Equal(48.0))
		})

		It("should reject invalid input with field errors", func() {
			_, err := env.Tickets.CreateTicket(ctx, sales, service.TicketCreateInput{
				Type:           domain.TicketType("BUG"),
				DepartmentCode: domain.DepartmentSales,
				Title:          "   ",
			})
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
			Expect(apperrors.ToDomainError(err).Details).To(HaveKey("fields"))
		})

		It("should reject type data of the wrong ticket type", func() {
			_, err := env.Tickets.CreateTicket(ctx, sales, service.TicketCreateInput{
				Type:           domain.TicketTypeGEN,
				DepartmentCode: domain.DepartmentSales,
				Title:          "Mismatched",
				TypeData:       &domain.RFQData{},
			})
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should deny inactive actors", func() {
			sales.IsActive = false
			_, err := env.Tickets.CreateTicket(ctx, sales, service.TicketCreateInput{
				Type:           domain.TicketTypeGEN,
				DepartmentCode: domain.DepartmentSales,
				Title:          "Hello",
			})
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))
		})

		It("should roll back the ticket, its SLA record and its sequence when the audit write fails", func() {
			store := newFlakyAuditStore()
			env = testfixtures.NewEnv(testfixtures.WithStore(store))
			sales = env.CreateUser(domain.RoleSalesperson)

			store.broken.Store(true)
			_, err := env.Tickets.CreateTicket(ctx, sales, service.TicketCreateInput{
				Type:           domain.TicketTypeGEN,
				DepartmentCode: domain.DepartmentSales,
				Title:          "Lost to the void",
			})
			Expect(err).To(HaveErrorCode(apperrors.CodePersistence))
			Expect(err).To(MatchError(errAuditDown))

			tickets, err := env.Store.Repos().Tickets.List(ctx, repository.TicketFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(tickets).To(BeEmpty())

			store.broken.Store(false)
			ticket := env.NewGEN(sales, domain.DepartmentSales)
			Expect(ticket.Code).To(Equal("GENSAL060125001"))
		})

		It("should publish a created event after commit", func() {
			var seen []events.Event
			env.Dispatcher.Subscribe(events.EventTicketCreated, func(_ context.Context, e events.Event) error {
				seen = append(seen, e)
				return nil
			})
			ticket := env.NewGEN(sales, domain.DepartmentSales)
			Expect(seen).To(HaveLen(1))
			Expect(seen[0].TicketID).To(Equal(ticket.ID))
		})
	})

	Describe("Transition", func() {
		var ticket *domain.Ticket

		BeforeEach(func() {
			ticket = env.NewRFQ(sales, domain.DepartmentExim)
		})

		It("should follow allowed edges", func() {
			updated, err := env.Tickets.Transition(ctx, manager, ticket.ID, service.TransitionInput{Target: "in_progress"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(domain.TicketStatusInProgress))

			updated, err = env.Tickets.Transition(ctx, manager, ticket.ID, service.TransitionInput{Target: "waiting_customer"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(domain.TicketStatusWaitingCustomer))
		})

		It("should accept legacy status names", func() {
			updated, err := env.Tickets.Transition(ctx, manager, ticket.ID, service.TransitionInput{Target: "pending"})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(domain.TicketStatusInProgress))
		})

		It("should reject unknown targets as validation errors", func() {
			_, err := env.Tickets.Transition(ctx, manager, ticket.ID, service.TransitionInput{Target: "archived"})
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should deny actors who cannot update the ticket", func() {
			outsider := env.CreateUser(domain.RoleMarketingStaff)
			_, err := env.Tickets.Transition(ctx, outsider, ticket.ID, service.TransitionInput{Target: "in_progress"})
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))
		})

		It("should report a bad edge before checking permission", func() {
			_, err := env.Tickets.Transition(ctx, admin, ticket.ID, service.TransitionInput{Target: "closed", Outcome: outcome(domain.CloseOutcomeLost), LostReason: reason(domain.LostReasonOther)})
			Expect(err).NotTo(HaveOccurred())

			outsider := env.CreateUser(domain.RoleMarketingStaff)
			_, err = env.Tickets.Transition(ctx, outsider, ticket.ID, service.TransitionInput{Target: "in_progress"})
			Expect(err).To(HaveErrorCode(apperrors.CodeInvalidTransition))
		})

		DescribeTable("close validation on RFQ tickets",
			func(input service.TransitionInput) {
				input.Target = "closed"
				_, err := env.Tickets.Transition(ctx, sales, ticket.ID, input)
				Expect(err).To(HaveErrorCode(apperrors.CodeValidation))

				stored, err := env.Store.Repos().Tickets.GetByID(ctx, ticket.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Status).To(Equal(domain.TicketStatusOpen))
				Expect(stored.ClosedAt).To(BeNil())
			},
			Entry("missing outcome", service.TransitionInput{}),
			Entry("won without project date", service.TransitionInput{Outcome: outcome(domain.CloseOutcomeWon)}),
			Entry("lost without reason", service.TransitionInput{Outcome: outcome(domain.CloseOutcomeLost)}),
			Entry("lost with unknown reason", service.TransitionInput{Outcome: outcome(domain.CloseOutcomeLost), LostReason: reason(domain.LostReason("weather"))}),
			Entry("unknown outcome", service.TransitionInput{Outcome: outcome(domain.CloseOutcome("draw"))}),
		)

		It("should close a won RFQ with its project date and resolve the SLA", func() {
			env.Clock.Advance(2 * time.Hour)
			projectDate := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
			closed, err := env.Tickets.Transition(ctx, sales, ticket.ID, service.TransitionInput{
				Target:      "closed",
				Outcome:     outcome(domain.CloseOutcomeWon),
				ProjectDate: &projectDate,
				Note:        "signed",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.Status).To(Equal(domain.TicketStatusClosed))
			Expect(closed.CloseOutcome).To(HaveValue(Equal(domain.CloseOutcomeWon)))
			Expect(closed.ProjectDate).To(HaveValue(Equal(projectDate)))
			Expect(closed.ClosedAt).To(HaveValue(Equal(env.Clock.Now())))
			Expect(closed.ResolvedAt).To(HaveValue(Equal(env.Clock.Now())))

			record, err := env.Store.Repos().SLA.GetByTicket(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.ResolutionMet).To(HaveValue(BeTrue()))

			_, err = env.Tickets.Transition(ctx, admin, ticket.ID, service.TransitionInput{Target: "in_progress"})
			Expect(err).To(HaveErrorCode(apperrors.CodeInvalidTransition))
		})

		It("should reject an outcome on GEN tickets and close them without one", func() {
			general := env.NewGEN(sales, domain.DepartmentExim)
			_, err := env.Tickets.Transition(ctx, sales, general.ID, service.TransitionInput{Target: "closed", Outcome: outcome(domain.CloseOutcomeWon)})
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))

			closed, err := env.Tickets.Transition(ctx, sales, general.ID, service.TransitionInput{Target: "closed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.CloseOutcome).To(BeNil())
		})

		It("should record a status change on the timeline", func() {
			_, err := env.Tickets.Transition(ctx, manager, ticket.ID, service.TransitionInput{Target: "need_response", Note: "need weights"})
			Expect(err).NotTo(HaveOccurred())

			details, err := env.Tickets.GetTicket(ctx, manager, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(details.Events).To(HaveLen(1))
			event := details.Events[0]
			Expect(event.Kind).To(Equal(domain.EventKindStatusChange))
			Expect(event.FromStatus).To(HaveValue(Equal(domain.TicketStatusOpen)))
			Expect(event.ToStatus).To(HaveValue(Equal(domain.TicketStatusNeedResponse)))
			Expect(event.ResponseDirection).To(BeNil())
		})
	})

	Describe("responses", func() {
		var ticket *domain.Ticket

		BeforeEach(func() {
			ticket = env.NewRFQ(sales, domain.DepartmentExim)
		})

		It("should attribute direction and business seconds to each reply", func() {
			env.Clock.Advance(30 * time.Minute)
			first, err := env.Tickets.AddComment(ctx, sales, ticket.ID, "any update?")
			Expect(err).NotTo(HaveOccurred())
			Expect(first.ResponseDirection).To(BeNil())
			Expect(first.ResponseTimeSeconds).To(BeNil())

			env.Clock.Advance(30 * time.Minute)
			reply, err := env.Tickets.AddComment(ctx, manager, ticket.ID, "checking rates")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.ResponseDirection).To(HaveValue(Equal(domain.DirectionToRequester)))
			Expect(reply.ResponseTimeSeconds).To(HaveValue(BeNumerically("==", 1800)))

			env.Clock.Advance(time.Hour)
			back, err := env.Tickets.AddComment(ctx, sales, ticket.ID, "thanks")
			Expect(err).NotTo(HaveOccurred())
			Expect(back.ResponseDirection).To(HaveValue(Equal(domain.DirectionToDepartment)))
			Expect(back.ResponseTimeSeconds).To(HaveValue(BeNumerically("==", 3600)))
		})

		It("should measure a staff reply from creation when the requester has not written", func() {
			env.Clock.Advance(90 * time.Minute)
			reply, err := env.Tickets.AddComment(ctx, manager, ticket.ID, "on it")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.ResponseTimeSeconds).To(HaveValue(BeNumerically("==", 5400)))
		})

		It("should count only business hours across a weekend", func() {
			friday := time.Date(2025, time.January, 10, 16, 0, 0, 0, time.UTC)
			env.Clock.Set(friday)
			late := env.NewRFQ(sales, domain.DepartmentExim)

			env.Clock.Set(friday.AddDate(0, 0, 3).Add(-7 * time.Hour))
			reply, err := env.Tickets.AddComment(ctx, manager, late.ID, "monday reply")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply.ResponseTimeSeconds).To(HaveValue(BeNumerically("==", 2*3600)))
		})

		It("should set the first-response milestone once", func() {
			env.Clock.Advance(time.Hour)
			_, err := env.Tickets.AddComment(ctx, manager, ticket.ID, "first")
			Expect(err).NotTo(HaveOccurred())
			firstAt := env.Clock.Now()

			env.Clock.Advance(time.Hour)
			_, err = env.Tickets.AddComment(ctx, manager, ticket.ID, "second")
			Expect(err).NotTo(HaveOccurred())
			again, err := env.SLA.RecordMilestone(ctx, admin, ticket.ID, domain.MilestoneFirstResponse)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.FirstResponseAt).To(HaveValue(Equal(firstAt)))

			record, err := env.Store.Repos().SLA.GetByTicket(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.FirstResponseMet).To(HaveValue(BeTrue()))

			history, err := env.Tickets.History(ctx, admin, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			slaUpdates := 0
			for _, entry := range history {
				if entry.TableName == "sla_records" && entry.Action == domain.AuditActionUpdate {
					slaUpdates++
				}
			}
			Expect(slaUpdates).To(Equal(1))
		})

		It("should not count the creator's own comments as a first response", func() {
			_, err := env.Tickets.AddComment(ctx, sales, ticket.ID, "bump")
			Expect(err).NotTo(HaveOccurred())
			stored, err := env.Store.Repos().Tickets.GetByID(ctx, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.FirstResponseAt).To(BeNil())
		})

		It("should refuse responses on closed tickets", func() {
			_, err := env.Tickets.Transition(ctx, admin, ticket.ID, service.TransitionInput{Target: "closed", Outcome: outcome(domain.CloseOutcomeLost), LostReason: reason(domain.LostReasonTimingIssue)})
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Tickets.AddComment(ctx, manager, ticket.ID, "too late")
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should store quotes from managers as responses", func() {
			env.Clock.Advance(time.Hour)
			result, err := env.Tickets.AddQuote(ctx, manager, ticket.ID, service.QuoteInput{AmountMinor: 125000, Currency: "usd"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Quote.Currency).To(Equal("USD"))
			Expect(result.Event.Kind).To(Equal(domain.EventKindQuote))
			Expect(result.Event.ResponseDirection).To(HaveValue(Equal(domain.DirectionToRequester)))

			details, err := env.Tickets.GetTicket(ctx, sales, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(details.Quotes).To(HaveLen(1))
			Expect(details.Ticket.FirstResponseAt).NotTo(BeNil())
		})

		It("should deny quotes from staff and on GEN tickets", func() {
			_, err := env.Tickets.AddQuote(ctx, sales, ticket.ID, service.QuoteInput{AmountMinor: 1, Currency: "USD"})
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))

			general := env.NewGEN(sales, domain.DepartmentExim)
			_, err = env.Tickets.AddQuote(ctx, manager, general.ID, service.QuoteInput{AmountMinor: 1, Currency: "USD"})
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should deny quotes from managers of another department", func() {
			marketingManager := env.CreateUser(domain.RoleMarketingManager)
			env.Clock.Advance(time.Hour)
			_, err := env.Tickets.AddQuote(ctx, marketingManager, ticket.ID, service.QuoteInput{AmountMinor: 1, Currency: "USD"})
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))

			details, err := env.Tickets.GetTicket(ctx, admin, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(details.Quotes).To(BeEmpty())
			Expect(details.Ticket.FirstResponseAt).To(BeNil())
		})
	})

	Describe("Assign", func() {
		It("should let a manager assign an active user and widen visibility", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			helper := env.CreateUser(domain.RoleMarketingStaff)

			_, err := env.Tickets.GetTicket(ctx, helper, ticket.ID)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))

			assigned, err := env.Tickets.Assign(ctx, manager, ticket.ID, helper.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(assigned.AssignedTo).To(HaveValue(Equal(helper.ID)))

			_, err = env.Tickets.GetTicket(ctx, helper, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should refuse staff and unknown assignees", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			_, err := env.Tickets.Assign(ctx, sales, ticket.ID, manager.ID)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))
			_, err = env.Tickets.Assign(ctx, manager, ticket.ID, "nobody")
			Expect(err).To(HaveErrorCode(apperrors.CodeNotFound))
		})

		It("should refuse managers who cannot see the ticket", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			marketingManager := env.CreateUser(domain.RoleMarketingManager)

			_, err := env.Tickets.Assign(ctx, marketingManager, ticket.ID, marketingManager.ID)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))

			details, err := env.Tickets.GetTicket(ctx, admin, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(details.Ticket.AssignedTo).To(BeNil())
		})
	})

	Describe("ListTickets", func() {
		It("should scope results by classification", func() {
			mine := env.NewGEN(sales, domain.DepartmentExim)
			other := env.CreateUser(domain.RoleMarketingStaff)
			theirs := env.NewGEN(other, domain.DepartmentDomestics)

			list, err := env.Tickets.ListTickets(ctx, sales, service.TicketListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ticketIDs(list)).To(ConsistOf(mine.ID))

			list, err = env.Tickets.ListTickets(ctx, manager, service.TicketListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ticketIDs(list)).To(ConsistOf(mine.ID))

			list, err = env.Tickets.ListTickets(ctx, admin, service.TicketListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ticketIDs(list)).To(ConsistOf(mine.ID, theirs.ID))
		})
	})

	Describe("attachments and deletion", func() {
		It("should let only the uploader or an admin remove an attachment", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			attachment, err := env.Tickets.AddAttachment(ctx, sales, ticket.ID, service.AttachmentInput{StorageKey: "s3://bucket/a.pdf", FileName: "a.pdf", SizeBytes: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(attachment.MimeType).To(Equal("application/octet-stream"))

			Expect(env.Tickets.DeleteAttachment(ctx, manager, attachment.ID)).To(HaveErrorCode(apperrors.CodeForbidden))
			Expect(env.Tickets.DeleteAttachment(ctx, sales, attachment.ID)).To(Succeed())
		})

		It("should keep the audit trail of a deleted ticket", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			Expect(env.Tickets.DeleteTicket(ctx, sales, ticket.ID)).To(Succeed())

			_, err := env.Tickets.GetTicket(ctx, admin, ticket.ID)
			Expect(err).To(HaveErrorCode(apperrors.CodeNotFound))

			entries, err := env.Store.Repos().Audit.ListByRecord(ctx, "tickets", ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))
			Expect(entries[1].Action).To(Equal(domain.AuditActionDelete))
			Expect(entries[1].After).To(BeNil())
		})
	})

	Describe("History", func() {
		It("should only grow and never rewrite earlier entries", func() {
			ticket := env.NewRFQ(sales, domain.DepartmentExim)
			before, err := env.Tickets.History(ctx, sales, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(before).To(HaveLen(2))

			env.Clock.Advance(time.Minute)
			_, err = env.Tickets.Transition(ctx, manager, ticket.ID, service.TransitionInput{Target: "in_progress"})
			Expect(err).NotTo(HaveOccurred())
			title := "Renamed"
			_, err = env.Tickets.UpdateDetails(ctx, sales, ticket.ID, service.TicketUpdateInput{Title: &title})
			Expect(err).NotTo(HaveOccurred())

			after, err := env.Tickets.History(ctx, sales, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(len(after)).To(BeNumerically(">", len(before)))
			Expect(after[:len(before)]).To(Equal(before))
			last := after[len(after)-1]
			Expect(last.Action).To(Equal(domain.AuditActionUpdate))
			Expect(last.ActorID).To(Equal(sales.ID))
			Expect(string(last.After)).To(ContainSubstring("Renamed"))
		})
	})
})

func ticketIDs(tickets []domain.Ticket) []string {
	ids := make([]string, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	return ids
}
