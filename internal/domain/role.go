package domain

// RoleName identifies one of the fixed platform roles.
type RoleName string

const (
	RoleSuperAdmin                 RoleName = "super_admin"
	RoleMarketingManager           RoleName = "marketing_manager"
	RoleMarketingStaff             RoleName = "marketing_staff"
	RoleSalesManager               RoleName = "sales_manager"
	RoleSalesperson                RoleName = "salesperson"
	RoleDomesticsOpsManager        RoleName = "domestics_ops_manager"
	RoleEximOpsManager             RoleName = "exim_ops_manager"
	RoleImportDTDOpsManager        RoleName = "import_dtd_ops_manager"
	RoleWarehouseTrafficOpsManager RoleName = "warehouse_traffic_ops_manager"
)

// Classification groups roles by authority level.
type Classification string

const (
	ClassificationAdmin   Classification = "admin"
	ClassificationManager Classification = "manager"
	ClassificationStaff   Classification = "staff"
)

// Role is immutable reference data describing a role.
type Role struct {
	Name           RoleName       `json:"name"`
	DisplayName    string         `json:"display_name"`
	Classification Classification `json:"classification"`
}
