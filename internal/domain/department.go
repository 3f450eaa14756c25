package domain

import "time"

// DepartmentCode is the three-letter department identifier.
type DepartmentCode string

const (
	DepartmentMarketing        DepartmentCode = "MKT"
	DepartmentSales            DepartmentCode = "SAL"
	DepartmentDomestics        DepartmentCode = "DOM"
	DepartmentExim             DepartmentCode = "EXI"
	DepartmentImportDTD        DepartmentCode = "DTD"
	DepartmentWarehouseTraffic DepartmentCode = "TRF"
)

// DepartmentCodes lists every known department code.
var DepartmentCodes = []DepartmentCode{
	DepartmentMarketing,
	DepartmentSales,
	DepartmentDomestics,
	DepartmentExim,
	DepartmentImportDTD,
	DepartmentWarehouseTraffic,
}

// Valid reports whether the code is one of the fixed department codes.
func (c DepartmentCode) Valid() bool {
	for _, code := range DepartmentCodes {
		if code == c {
			return true
		}
	}
	return false
}

// Department represents a business unit that owns tickets.
type Department struct {
	Code            DepartmentCode `json:"code"`
	Name            string         `json:"name"`
	DefaultSLAHours float64        `json:"default_sla_hours"`
	CreatedAt       time.Time      `json:"created_at"`
}
