package auth_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/auth"
	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

func actorFor(id string, role domain.RoleName, dept domain.DepartmentCode) domain.Actor {
	actor := domain.Actor{ID: id, Role: role, IsActive: true}
	if dept != "" {
		actor.DepartmentCode = &dept
	}
	return actor
}

var _ = Describe("PermissionEngine", func() {
	var (
		engine       *auth.PermissionEngine
		admin        domain.Actor
		salesManager domain.Actor
		salesperson  domain.Actor
		otherSales   domain.Actor
		marketing    domain.Actor
		eximManager  domain.Actor
		ticket       *domain.Ticket
	)

	BeforeEach(func() {
		engine = auth.NewPermissionEngine(auth.NewRoleCatalog())
		admin = actorFor("admin", domain.RoleSuperAdmin, "")
		salesManager = actorFor("sal-mgr", domain.RoleSalesManager, domain.DepartmentSales)
		salesperson = actorFor("sal-1", domain.RoleSalesperson, domain.DepartmentSales)
		otherSales = actorFor("sal-2", domain.RoleSalesperson, domain.DepartmentSales)
		marketing = actorFor("mkt-1", domain.RoleMarketingStaff, domain.DepartmentMarketing)
		eximManager = actorFor("exi-mgr", domain.RoleEximOpsManager, domain.DepartmentExim)
		ticket = &domain.Ticket{
			ID:             "t-1",
			Type:           domain.TicketTypeGEN,
			Status:         domain.TicketStatusOpen,
			DepartmentCode: domain.DepartmentDomestics,
			CreatedBy:      salesperson.ID,
		}
	})

	can := func(actor domain.Actor, op auth.Operation) bool {
		return engine.CanPerform(actor, op, auth.TicketResource(ticket))
	}

	Context("ticket visibility", func() {
		It("should deny a salesperson outside the ticket and its department", func() {
			Expect(can(marketing, auth.OpTicketView)).To(BeFalse())
			Expect(can(otherSales, auth.OpTicketView)).To(BeFalse())
		})

		It("should grant the creator view and update until the ticket closes", func() {
			Expect(can(salesperson, auth.OpTicketView)).To(BeTrue())
			Expect(can(salesperson, auth.OpTicketUpdate)).To(BeTrue())

			ticket.Status = domain.TicketStatusClosed
			Expect(can(salesperson, auth.OpTicketView)).To(BeTrue())
			Expect(can(salesperson, auth.OpTicketUpdate)).To(BeFalse())
		})

		It("should grant the assignee", func() {
			ticket.AssignedTo = &marketing.ID
			Expect(can(marketing, auth.OpTicketView)).To(BeTrue())
			Expect(can(marketing, auth.OpTicketUpdate)).To(BeTrue())
		})

		It("should grant managers of the owning department only", func() {
			domManager := actorFor("dom-mgr", domain.RoleDomesticsOpsManager, domain.DepartmentDomestics)
			Expect(can(domManager, auth.OpTicketView)).To(BeTrue())
			Expect(can(eximManager, auth.OpTicketView)).To(BeFalse())
			Expect(can(salesManager, auth.OpTicketView)).To(BeFalse())
		})

		It("should always grant admins", func() {
			ticket.Status = domain.TicketStatusClosed
			Expect(can(admin, auth.OpTicketView)).To(BeTrue())
			Expect(can(admin, auth.OpTicketUpdate)).To(BeTrue())
			Expect(can(admin, auth.OpTicketDelete)).To(BeTrue())
		})
	})

	Context("deletion", func() {
		It("should require staff to be the creator", func() {
			ticket.AssignedTo = &otherSales.ID
			Expect(can(salesperson, auth.OpTicketDelete)).To(BeTrue())
			Expect(can(otherSales, auth.OpTicketDelete)).To(BeFalse())
		})

		It("should let department managers delete", func() {
			ticket.DepartmentCode = domain.DepartmentSales
			Expect(can(salesManager, auth.OpTicketDelete)).To(BeTrue())
		})
	})

	DescribeTable("assign and quote need a manager or admin who can see the ticket",
		func(op auth.Operation) {
			domManager := actorFor("dom-mgr", domain.RoleDomesticsOpsManager, domain.DepartmentDomestics)
			Expect(can(admin, op)).To(BeTrue())
			Expect(can(domManager, op)).To(BeTrue())
			Expect(can(salesperson, op)).To(BeFalse())

			By("denying managers of other departments")
			Expect(can(eximManager, op)).To(BeFalse())
			Expect(can(salesManager, op)).To(BeFalse())

			By("granting a cross-department manager once assigned")
			ticket.AssignedTo = &eximManager.ID
			Expect(can(eximManager, op)).To(BeTrue())
		},
		Entry("assign", auth.OpTicketAssign),
		Entry("quote", auth.OpQuoteCreate),
	)

	Context("attachments", func() {
		It("should allow upload only where the ticket is visible", func() {
			Expect(can(salesperson, auth.OpAttachmentUpload)).To(BeTrue())
			Expect(can(marketing, auth.OpAttachmentUpload)).To(BeFalse())
		})

		It("should allow deletion by the uploader or an admin", func() {
			attachment := &domain.Attachment{ID: "a-1", TicketID: ticket.ID, UploadedBy: salesperson.ID}
			res := auth.AttachmentResource(ticket, attachment)
			Expect(engine.CanPerform(salesperson, auth.OpAttachmentDelete, res)).To(BeTrue())
			Expect(engine.CanPerform(otherSales, auth.OpAttachmentDelete, res)).To(BeFalse())
			Expect(engine.CanPerform(salesManager, auth.OpAttachmentDelete, res)).To(BeFalse())
			Expect(engine.CanPerform(admin, auth.OpAttachmentDelete, res)).To(BeTrue())
		})
	})

	It("should reserve user management for admins", func() {
		target := &domain.UserProfile{ID: "u-9"}
		Expect(engine.CanPerform(admin, auth.OpUserManage, auth.UserResource(target))).To(BeTrue())
		Expect(engine.CanPerform(salesManager, auth.OpUserManage, auth.UserResource(target))).To(BeFalse())
	})

	It("should deny inactive and unknown actors everything", func() {
		inactive := admin
		inactive.IsActive = false
		Expect(can(inactive, auth.OpTicketView)).To(BeFalse())

		unknown := actorFor("ghost", domain.RoleName("intern"), domain.DepartmentSales)
		Expect(can(unknown, auth.OpTicketCreate)).To(BeFalse())
	})
})

var _ = Describe("RoleCatalog", func() {
	catalog := auth.NewRoleCatalog()

	It("should hold nine roles", func() {
		Expect(catalog.Roles()).To(HaveLen(9))
	})

	DescribeTable("classification and home department",
		func(role domain.RoleName, class domain.Classification, home *domain.DepartmentCode) {
			def, ok := catalog.Lookup(role)
			Expect(ok).To(BeTrue())
			Expect(def.Classification).To(Equal(class))
			if home == nil {
				Expect(def.HomeDepartment).To(BeNil())
			} else {
				Expect(def.HomeDepartment).To(HaveValue(Equal(*home)))
			}
		},
		Entry("super admin", domain.RoleSuperAdmin, domain.ClassificationAdmin, nil),
		Entry("salesperson", domain.RoleSalesperson, domain.ClassificationStaff, ptrTo(domain.DepartmentSales)),
		Entry("exim manager", domain.RoleEximOpsManager, domain.ClassificationManager, ptrTo(domain.DepartmentExim)),
		Entry("warehouse manager", domain.RoleWarehouseTrafficOpsManager, domain.ClassificationManager, ptrTo(domain.DepartmentWarehouseTraffic)),
	)

	It("should withhold assign and quote capabilities from staff", func() {
		Expect(catalog.HasCapability(domain.RoleMarketingStaff, auth.CapTicketAssign)).To(BeFalse())
		Expect(catalog.HasCapability(domain.RoleMarketingStaff, auth.CapQuoteCreate)).To(BeFalse())
		Expect(catalog.HasCapability(domain.RoleMarketingManager, auth.CapQuoteCreate)).To(BeTrue())
		Expect(catalog.HasCapability(domain.RoleSalesManager, auth.CapUsersManage)).To(BeFalse())
	})
})

func ptrTo(code domain.DepartmentCode) *domain.DepartmentCode {
	return &code
}
