package domain

// Role granted to a user on an organization or a project
type Role string

const (
	RoleMember            Role = "member"
	RoleViewer            Role = "viewer"
	RoleInteractiveViewer Role = "interactive_viewer"
	RoleEditor            Role = "editor"
	RoleDeveloper         Role = "developer"
	RoleAdmin             Role = "admin"
)

// roleRank orders roles from least to most privileged
var roleRank = map[Role]int{
	RoleMember:            0,
	RoleViewer:            1,
	RoleInteractiveViewer: 2,
	RoleEditor:            3,
	RoleDeveloper:         4,
	RoleAdmin:             5,
}

// Valid reports whether the role is known
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants at least the privileges of other
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// SessionUser is the authenticated caller of an operation
type SessionUser struct {
	UserUUID         string          `json:"userUuid"`
	Email            string          `json:"email,omitempty"`
	OrganizationUUID string          `json:"organizationUuid"`
	OrganizationRole Role            `json:"role"`
	ProjectRoles     map[string]Role `json:"projectRoles,omitempty"`
}
