package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/events"
	"github.com/spec-kit/logistics-ticketing/internal/service"
	"github.com/spec-kit/logistics-ticketing/internal/testfixtures"
	apperrors "github.com/spec-kit/logistics-ticketing/pkg/errorutil"
)

var _ = Describe("UserService", func() {
	var (
		ctx   context.Context
		env   *testfixtures.Env
		admin domain.Actor
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = testfixtures.NewEnv()
		admin = env.CreateUser(domain.RoleSuperAdmin)
	})

	Describe("CreateUser", func() {
		It("should default the department to the role's home", func() {
			user, err := env.Users.CreateUser(ctx, admin, service.CreateUserInput{
				Email:    " Rina@Example.com ",
				FullName: "Rina",
				Password: testfixtures.TestPassword,
				Role:     domain.RoleSalesperson,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Email).To(Equal("rina@example.com"))
			Expect(user.DepartmentCode).To(HaveValue(Equal(domain.DepartmentSales)))
			Expect(user.IsActive).To(BeTrue())
		})

		It("should give admins no department", func() {
			dept := domain.DepartmentExim
			user, err := env.Users.CreateUser(ctx, admin, service.CreateUserInput{
				Email: "boss@example.com", FullName: "Boss", Password: testfixtures.TestPassword,
				Role: domain.RoleSuperAdmin, DepartmentCode: &dept,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(user.DepartmentCode).To(BeNil())
		})

		It("should reject duplicates, weak passwords and unknown roles", func() {
			input := service.CreateUserInput{Email: "dup@example.com", FullName: "Dup", Password: testfixtures.TestPassword, Role: domain.RoleMarketingStaff}
			_, err := env.Users.CreateUser(ctx, admin, input)
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Users.CreateUser(ctx, admin, input)
			Expect(err).To(HaveErrorCode(apperrors.CodeConflict))

			input.Email = "weak@example.com"
			input.Password = "short"
			_, err = env.Users.CreateUser(ctx, admin, input)
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))

			input.Password = testfixtures.TestPassword
			input.Role = domain.RoleName("janitor")
			_, err = env.Users.CreateUser(ctx, admin, input)
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should be reserved for admins", func() {
			manager := env.CreateUser(domain.RoleSalesManager)
			_, err := env.Users.CreateUser(ctx, manager, service.CreateUserInput{
				Email: "x@example.com", FullName: "X", Password: testfixtures.TestPassword, Role: domain.RoleSalesperson,
			})
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))
		})
	})

	Describe("SeedAdmin", func() {
		It("should create the account once", func() {
			user, created, err := env.Users.SeedAdmin(ctx, "root@example.com", "Root", testfixtures.TestPassword)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())
			Expect(user.Role).To(Equal(domain.RoleSuperAdmin))

			again, created, err := env.Users.SeedAdmin(ctx, "ROOT@example.com", "Other", "another-password")
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(again.ID).To(Equal(user.ID))

			entries, err := env.Store.Repos().Audit.ListByRecord(ctx, "users", user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ActorID).To(Equal("system"))
			Expect(string(entries[0].After)).NotTo(ContainSubstring("password"))
		})
	})

	Describe("SetActive and ChangeRole", func() {
		It("should deactivate other users and announce the change", func() {
			target := env.CreateUser(domain.RoleSalesperson)
			var seen []events.Event
			env.Dispatcher.Subscribe(events.EventUserUpdated, func(_ context.Context, e events.Event) error {
				seen = append(seen, e)
				return nil
			})

			user, err := env.Users.SetActive(ctx, admin, target.ID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.IsActive).To(BeFalse())
			Expect(seen).To(HaveLen(1))
		})

		It("should refuse self-deactivation", func() {
			_, err := env.Users.SetActive(ctx, admin, admin.ID, false)
			Expect(err).To(HaveErrorCode(apperrors.CodeValidation))
		})

		It("should move a user to a new role and its home department", func() {
			target := env.CreateUser(domain.RoleSalesperson)
			user, err := env.Users.ChangeRole(ctx, admin, target.ID, domain.RoleEximOpsManager, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Role).To(Equal(domain.RoleEximOpsManager))
			Expect(user.DepartmentCode).To(HaveValue(Equal(domain.DepartmentExim)))
		})

		It("should let users read only themselves", func() {
			one := env.CreateUser(domain.RoleSalesperson)
			two := env.CreateUser(domain.RoleSalesperson)
			_, err := env.Users.GetUser(ctx, one, one.ID)
			Expect(err).NotTo(HaveOccurred())
			_, err = env.Users.GetUser(ctx, one, two.ID)
			Expect(err).To(HaveErrorCode(apperrors.CodeForbidden))
		})
	})

	It("should list the reference data", func() {
		Expect(env.Users.ListRoles()).To(HaveLen(9))
		departments, err := env.Users.ListDepartments(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(departments).To(HaveLen(6))
	})
})
