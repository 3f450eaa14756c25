package repository

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

var _ = Describe("buildTicketListQuery", func() {
	It("should break created_at ties by code so pages do not overlap", func() {
		query, args := buildTicketListQuery(TicketFilter{Limit: 50, Offset: 100})
		Expect(query).To(HaveSuffix("ORDER BY created_at DESC, code DESC LIMIT 50 OFFSET 100"))
		Expect(args).To(BeEmpty())
	})

	It("should number placeholders in filter order", func() {
		dept := domain.DepartmentExim
		user := "u-1"
		query, args := buildTicketListQuery(TicketFilter{
			DepartmentCode:    &dept,
			Statuses:          []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress},
			VisibleToUser:     &user,
			VisibleDepartment: &dept,
		})
		Expect(query).To(ContainSubstring("department_code=$1"))
		Expect(query).To(ContainSubstring("status IN ($2,$3)"))
		Expect(query).To(ContainSubstring("(created_by=$4 OR assigned_to=$4 OR department_code=$5)"))
		Expect(query).To(ContainSubstring("LIMIT 20 OFFSET 0"))
		Expect(args).To(Equal([]any{"EXI", "open", "in_progress", "u-1", "EXI"}))
	})
})
