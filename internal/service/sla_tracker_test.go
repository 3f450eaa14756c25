package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/config"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/testfixtures"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

var _ = Describe("SLATracker", func() {
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

	It("should resolve targets from the policy file", func() {
		policy := config.DefaultSLAPolicy()
		policy.Overrides = []config.SLAOverride{{
			Department: "EXI",
			TicketType: "RFQ",
			Targets:    config.SLATargets{FirstResponseHours: 1, ResolutionHours: 8},
		}}
		env = testfixtures.NewEnv(testfixtures.WithSLAPolicy(policy))
		sales = env.CreateUser(domain.RoleSalesperson)

		rfq := env.NewRFQ(sales, domain.DepartmentExim)
		gen := env.NewGEN(sales, domain.DepartmentExim)

		record, err := env.Store.Repos().SLA.GetByTicket(ctx, rfq.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(record.FirstResponseTargetHours).To(Equal(1.0))
		Expect(record.ResolutionTargetHours).To(Equal(8.0))

		record, err = env.Store.Repos().SLA.GetByTicket(ctx, gen.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(record.FirstResponseTargetHours).To(Equal(4.0))
		Expect(record.ResolutionTargetHours).To(Equal(48.0))
	})

	Describe("TicketStatus", func() {
		It("should move from on track to warning to at risk while no one answers", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)

			status, err := env.SLA.TicketStatus(ctx, sales, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.FirstResponse.Status).To(Equal(domain.SLAStatusOnTrack))

			env.Clock.Advance(5 * time.Hour)
			status, err = env.SLA.TicketStatus(ctx, sales, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.FirstResponse.Status).To(Equal(domain.SLAStatusWarning))
			Expect(status.FirstResponse.ElapsedHours).To(BeNumerically("~", 5.0, 0.001))

			env.Clock.Advance(24 * time.Hour)
			status, err = env.SLA.TicketStatus(ctx, sales, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.FirstResponse.Status).To(Equal(domain.SLAStatusAtRisk))
		})

		It("should report breached when the milestone lands late", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			env.Clock.Advance(6 * time.Hour)
			_, err := env.Tickets.AddComment(ctx, manager, ticket.ID, "sorry for the wait")
			Expect(err).NotTo(HaveOccurred())

			status, err := env.SLA.TicketStatus(ctx, manager, ticket.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.FirstResponse.Status).To(Equal(domain.SLAStatusBreached))
			Expect(status.FirstResponse.AchievedAt).NotTo(BeNil())
		})

		It("should deny actors who cannot view the ticket", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			outsider := env.CreateUser(domain.RoleMarketingStaff)
			_, err := env.SLA.TicketStatus(ctx, outsider, ticket.ID)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))
		})
	})

	Describe("RecordMilestone", func() {
		It("should be idempotent and announce the milestone only once", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			var announced []events.Event
			env.Dispatcher.Subscribe(events.EventSLAMilestone, func(_ context.Context, e events.Event) error {
				announced = append(announced, e)
				return nil
			})

			env.Clock.Advance(time.Hour)
			first, err := env.SLA.RecordMilestone(ctx, manager, ticket.ID, domain.MilestoneResolved)
			Expect(err).NotTo(HaveOccurred())
			resolvedAt := *first.ResolvedAt

			env.Clock.Advance(time.Hour)
			second, err := env.SLA.RecordMilestone(ctx, manager, ticket.ID, domain.MilestoneResolved)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.ResolvedAt).To(HaveValue(Equal(resolvedAt)))
			Expect(announced).To(HaveLen(1))
		})

		It("should reject unknown milestones", func() {
			ticket := env.NewGEN(sales, domain.DepartmentExim)
			_, err := env.SLA.RecordMilestone(ctx, manager, ticket.ID, domain.Milestone("lunch"))
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})
	})

	Describe("reports", func() {
		var exim domain.DepartmentCode

		BeforeEach(func() {
			exim = domain.DepartmentExim
		})

		It("should scope summaries by classification", func() {
			env.NewGEN(sales, domain.DepartmentExim)
			env.NewGEN(sales, domain.DepartmentDomestics)

			_, err := env.SLA.Summary(ctx, sales, service.Window{}, nil)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))

			domestics := domain.DepartmentDomestics
			_, err = env.SLA.Summary(ctx, manager, service.Window{}, &domestics)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))

			own, err := env.SLA.Summary(ctx, manager, service.Window{}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(own.Department).To(HaveValue(Equal(exim)))
			Expect(own.Tickets).To(Equal(1))
			Expect(own.FirstResponse[domain.SLAStatusOnTrack]).To(Equal(1))

			all, err := env.SLA.Summary(ctx, admin, service.Window{}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all.Tickets).To(Equal(2))
		})

		It("should reject inverted windows", func() {
			now := env.Clock.Now()
			_, err := env.SLA.Summary(ctx, admin, service.Window{From: now, To: now.Add(-time.Hour)}, nil)
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should list only tickets with an overdue pending milestone", func() {
			late := env.NewGEN(sales, domain.DepartmentExim)
			env.Clock.Advance(5 * time.Hour)
			env.NewGEN(sales, domain.DepartmentExim)

			flagged, err := env.SLA.AtRisk(ctx, manager, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(flagged).To(HaveLen(1))
			Expect(flagged[0].TicketID).To(Equal(late.ID))

			_, err = env.Tickets.AddComment(ctx, manager, late.ID, "here")
			Expect(err).NotTo(HaveOccurred())
			flagged, err = env.SLA.AtRisk(ctx, manager, &exim)
			Expect(err).NotTo(HaveOccurred())
			Expect(flagged).To(BeEmpty())
		})
	})
})
