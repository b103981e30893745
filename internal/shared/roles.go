package shared

// Role is the coarse permission grouping assigned to every user account.
type Role string

const (
	RoleAdmin                 Role = "ADMIN"
	RoleSales                 Role = "SALES"
	RoleProjectsAdmin         Role = "PROJECTS_ADMIN"
	RoleProjectsSurvey        Role = "PROJECTS_SURVEY"
	RoleProjectsInstall       Role = "PROJECTS_INSTALL"
	RoleProjectsCommissioning Role = "PROJECTS_COMMISSIONING"
	RoleFinance               Role = "FINANCE"
	RoleReadOnly              Role = "READ_ONLY"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleAdmin,
	RoleSales,
	RoleProjectsAdmin,
	RoleProjectsSurvey,
	RoleProjectsInstall,
	RoleProjectsCommissioning,
	RoleFinance,
	RoleReadOnly,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// In reports whether r is one of the given roles.
func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
