package memstore_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
	"github.com/spec-kit/logistics-ticketing/internal/repository"
	"github.com/spec-kit/logistics-ticketing/internal/repository/memstore"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *memstore.Store
		day   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memstore.New()
		day = time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC)
	})

	newTicket := func(id, code string, dept domain.DepartmentCode, createdBy string, at time.Time) *domain.Ticket {
		return &domain.Ticket{
			ID: id, Code: code, Type: domain.TicketTypeGEN, Status: domain.TicketStatusOpen,
			Priority: domain.TicketPriorityMedium, DepartmentCode: dept, CreatedBy: createdBy,
			Title: id, CreatedAt: at,
		}
	}

	It("should seed the six departments", func() {
		departments, err := store.Repos().Departments.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(departments).To(HaveLen(6))
	})

	It("should discard every write of a failed transaction", func() {
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			Expect(repos.Tickets.Create(ctx, newTicket("t-1", "GENSAL060125001", domain.DepartmentSales, "u-1", day))).To(Succeed())
			seq, err := repos.Sequences.Next(ctx, domain.TicketTypeGEN, domain.DepartmentSales, day)
			Expect(err).NotTo(HaveOccurred())
			Expect(seq).To(Equal(1))
			return boom
		})
		Expect(err).To(MatchError(boom))

		_, err = store.Repos().Tickets.GetByID(ctx, "t-1")
		Expect(err).To(MatchError(repository.ErrNotFound))
		seq, err := store.Repos().Sequences.Next(ctx, domain.TicketTypeGEN, domain.DepartmentSales, day)
		Expect(err).NotTo(HaveOccurred())
		Expect(seq).To(Equal(1))
	})

	It("should enforce unique ticket codes and user emails", func() {
		repos := store.Repos()
		Expect(repos.Tickets.Create(ctx, newTicket("t-1", "GENSAL060125001", domain.DepartmentSales, "u-1", day))).To(Succeed())
		Expect(repos.Tickets.Create(ctx, newTicket("t-2", "GENSAL060125001", domain.DepartmentSales, "u-1", day))).To(MatchError(repository.ErrDuplicate))

		Expect(repos.Users.Create(ctx, &domain.UserProfile{ID: "u-1", Email: "a@example.com"})).To(Succeed())
		Expect(repos.Users.Create(ctx, &domain.UserProfile{ID: "u-2", Email: "A@example.com"})).To(MatchError(repository.ErrDuplicate))
	})

	It("should page tickets with equal creation times without gaps or repeats", func() {
		repos := store.Repos()
		codes := []string{"GENSAL060125001", "GENSAL060125002", "GENSAL060125003", "GENSAL060125004", "GENSAL060125005"}
		for i, code := range codes {
			Expect(repos.Tickets.Create(ctx, newTicket(code, code, domain.DepartmentSales, "u-1", day))).To(Succeed(), i)
		}

		var seen []string
		for offset := 0; offset < len(codes); offset += 2 {
			page, err := repos.Tickets.List(ctx, repository.TicketFilter{Limit: 2, Offset: offset})
			Expect(err).NotTo(HaveOccurred())
			for _, ticket := range page {
				seen = append(seen, ticket.Code)
			}
		}
		Expect(seen).To(Equal([]string{"GENSAL060125005", "GENSAL060125004", "GENSAL060125003", "GENSAL060125002", "GENSAL060125001"}))
	})

	It("should read the current row when locking inside a transaction", func() {
		Expect(store.Repos().Tickets.Create(ctx, newTicket("t-1", "GENSAL060125001", domain.DepartmentSales, "u-1", day))).To(Succeed())
		err := store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
			ticket, err := repos.Tickets.GetByIDForUpdate(ctx, "t-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ticket.Code).To(Equal("GENSAL060125001"))
			_, err = repos.Tickets.GetByIDForUpdate(ctx, "missing")
			Expect(err).To(MatchError(repository.ErrNotFound))
			return nil
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep creation-time fields on update", func() {
		repos := store.Repos()
		Expect(repos.Tickets.Create(ctx, newTicket("t-1", "GENSAL060125001", domain.DepartmentSales, "u-1", day))).To(Succeed())

		changed := newTicket("t-1", "GENEXI060125009", domain.DepartmentExim, "u-9", day.Add(time.Hour))
		changed.Status = domain.TicketStatusInProgress
		Expect(repos.Tickets.Update(ctx, changed)).To(Succeed())

		stored, err := repos.Tickets.GetByID(ctx, "t-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Status).To(Equal(domain.TicketStatusInProgress))
		Expect(stored.Code).To(Equal("GENSAL060125001"))
		Expect(stored.DepartmentCode).To(Equal(domain.DepartmentSales))
		Expect(stored.CreatedBy).To(Equal("u-1"))
	})

	It("should filter tickets by visibility", func() {
		repos := store.Repos()
		Expect(repos.Tickets.Create(ctx, newTicket("mine", "GENSAL060125001", domain.DepartmentSales, "u-1", day))).To(Succeed())
		Expect(repos.Tickets.Create(ctx, newTicket("dept", "GENEXI060125001", domain.DepartmentExim, "u-2", day.Add(time.Minute)))).To(Succeed())
		Expect(repos.Tickets.Create(ctx, newTicket("other", "GENDOM060125001", domain.DepartmentDomestics, "u-3", day.Add(2*time.Minute)))).To(Succeed())

		user := "u-1"
		exim := domain.DepartmentExim
		tickets, err := repos.Tickets.List(ctx, repository.TicketFilter{VisibleToUser: &user, VisibleDepartment: &exim})
		Expect(err).NotTo(HaveOccurred())
		ids := []string{}
		for _, t := range tickets {
			ids = append(ids, t.ID)
		}
		Expect(ids).To(Equal([]string{"dept", "mine"}))
	})

	It("should keep the audit log append-only and ordered", func() {
		repos := store.Repos()
		for i, action := range []domain.AuditAction{domain.AuditActionCreate, domain.AuditActionUpdate} {
			Expect(repos.Audit.Append(ctx, &domain.AuditLogEntry{
				ID: string(action), TableName: "tickets", RecordID: "t-1", Action: action,
				ActorID: "u-1", CreatedAt: day.Add(time.Duration(i) * time.Minute),
			})).To(Succeed())
		}
		entries, err := repos.Audit.ListByRecord(ctx, "tickets", "t-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0].Action).To(Equal(domain.AuditActionCreate))
		Expect(entries[1].Action).To(Equal(domain.AuditActionUpdate))
	})
})
