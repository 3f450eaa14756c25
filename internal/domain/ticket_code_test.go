package domain_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

var _ = Describe("Ticket code", func() {
	day := time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

	It("should render type, department, DDMMYY and a padded sequence", func() {
		Expect(domain.FormatTicketCode(domain.TicketTypeRFQ, domain.DepartmentSales, day, 7)).To(Equal("RFQSAL070325007"))
		Expect(domain.FormatTicketCode(domain.TicketTypeGEN, domain.DepartmentExim, day, 123)).To(Equal("GENEXI070325123"))
	})

	It("should parse what it formats", func() {
		parts, err := domain.ParseTicketCode("GENTRF070325042")
		Expect(err).NotTo(HaveOccurred())
		Expect(parts.Type).To(Equal(domain.TicketTypeGEN))
		Expect(parts.Department).To(Equal(domain.DepartmentWarehouseTraffic))
		Expect(parts.Date).To(Equal(day))
		Expect(parts.Sequence).To(Equal(42))
	})

	DescribeTable("rejects malformed codes",
		func(code string) {
			_, err := domain.ParseTicketCode(code)
			Expect(err).To(HaveOccurred())
		},
		Entry("unknown type", "XYZSAL070325001"),
		Entry("lowercase department", "RFQsal070325001"),
		Entry("short sequence", "RFQSAL07032501"),
		Entry("invalid date", "RFQSAL320325001"),
		Entry("trailing text", "RFQSAL070325001X"),
	)
})
