package auth

import (
	"sort"

	"github.com/spec-kit/logistics-ticketing/internal/domain"
)

// Capability is a coarse-grained right granted by a role.
type Capability string

const (
	CapTicketCreate     Capability = "ticket:create"
	CapTicketView       Capability = "ticket:view"
	CapTicketUpdate     Capability = "ticket:update"
	CapTicketDelete     Capability = "ticket:delete"
	CapTicketAssign     Capability = "ticket:assign"
	CapQuoteCreate      Capability = "quote:create"
	CapAttachmentUpload Capability = "attachment:upload"
	CapAttachmentDelete Capability = "attachment:delete"
	CapUsersManage      Capability = "users:manage"
)

// RoleDefinition is a catalog entry.
type RoleDefinition struct {
	domain.Role
	HomeDepartment *domain.DepartmentCode
	Capabilities   map[Capability]struct{}
}

// Has reports whether the role grants the capability.
func (d RoleDefinition) Has(c Capability) bool {
	_, ok := d.Capabilities[c]
	return ok
}

// RoleCatalog is the static registry of roles.
type RoleCatalog struct {
	roles map[domain.RoleName]RoleDefinition
}

var (
	adminCaps = []Capability{
		CapTicketCreate, CapTicketView, CapTicketUpdate, CapTicketDelete, CapTicketAssign,
		CapQuoteCreate, CapAttachmentUpload, CapAttachmentDelete, CapUsersManage,
	}
	managerCaps = []Capability{
		CapTicketCreate, CapTicketView, CapTicketUpdate, CapTicketDelete, CapTicketAssign,
		CapQuoteCreate, CapAttachmentUpload, CapAttachmentDelete,
	}
	staffCaps = []Capability{
		CapTicketCreate, CapTicketView, CapTicketUpdate, CapTicketDelete,
		CapAttachmentUpload, CapAttachmentDelete,
	}
)

// NewRoleCatalog builds the fixed catalog of nine roles.
func NewRoleCatalog() *RoleCatalog {
	c := &RoleCatalog{roles: make(map[domain.RoleName]RoleDefinition)}
	c.add(domain.RoleSuperAdmin, "Super Admin", domain.ClassificationAdmin, "", adminCaps)
	c.add(domain.RoleMarketingManager, "Marketing Manager", domain.ClassificationManager, domain.DepartmentMarketing, managerCaps)
	c.add(domain.RoleMarketingStaff, "Marketing Staff", domain.ClassificationStaff, domain.DepartmentMarketing, staffCaps)
	c.add(domain.RoleSalesManager, "Sales Manager", domain.ClassificationManager, domain.DepartmentSales, managerCaps)
	c.add(domain.RoleSalesperson, "Salesperson", domain.ClassificationStaff, domain.DepartmentSales, staffCaps)
	c.add(domain.RoleDomesticsOpsManager, "Domestics Ops Manager", domain.ClassificationManager, domain.DepartmentDomestics, managerCaps)
	c.add(domain.RoleEximOpsManager, "EXIM Ops Manager", domain.ClassificationManager, domain.DepartmentExim, managerCaps)
	c.add(domain.RoleImportDTDOpsManager, "Import DTD Ops Manager", domain.ClassificationManager, domain.DepartmentImportDTD, managerCaps)
	c.add(domain.RoleWarehouseTrafficOpsManager, "Warehouse & Traffic Ops Manager", domain.ClassificationManager, domain.DepartmentWarehouseTraffic, managerCaps)
	return c
}

func (c *RoleCatalog) add(name domain.RoleName, display string, class domain.Classification, home domain.DepartmentCode, caps []Capability) {
	def := RoleDefinition{
		Role:         domain.Role{Name: name, DisplayName: display, Classification: class},
		Capabilities: make(map[Capability]struct{}, len(caps)),
	}
	if home != "" {
		dept := home
		def.HomeDepartment = &dept
	}
	for _, capability := range caps {
		def.Capabilities[capability] = struct{}{}
	}
	c.roles[name] = def
}

// Lookup returns the definition for a role.
func (c *RoleCatalog) Lookup(name domain.RoleName) (RoleDefinition, bool) {
	def, ok := c.roles[name]
	return def, ok
}

// Classification returns the classification of a role, or false if unknown.
func (c *RoleCatalog) Classification(name domain.RoleName) (domain.Classification, bool) {
	def, ok := c.roles[name]
	if !ok {
		return "", false
	}
	return def.Classification, true
}

// HasCapability reports whether the role grants the capability.
func (c *RoleCatalog) HasCapability(name domain.RoleName, capability Capability) bool {
	def, ok := c.roles[name]
	return ok && def.Has(capability)
}

// Roles lists every role sorted by name.
func (c *RoleCatalog) Roles() []domain.Role {
	out := make([]domain.Role, 0, len(c.roles))
	for _, def := range c.roles {
		out = append(out, def.Role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
