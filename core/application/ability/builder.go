package ability

import (
	"sort"

	"github.com/semlayer/semlayer/core/domain"
)

// ForUser builds the ability of a session user from its organization and
// project roles.
func ForUser(user domain.SessionUser) *Ability {
	var rules []Rule
	if user.OrganizationUUID == "" {
		return New()
	}

	rules = append(rules, roleRules(user.OrganizationRole, user.OrganizationUUID, "")...)

	projects := make([]string, 0, len(user.ProjectRoles))
	for projectUUID := range user.ProjectRoles {
		projects = append(projects, projectUUID)
	}
	sort.Strings(projects)
	for _, projectUUID := range projects {
		rules = append(rules, roleRules(user.ProjectRoles[projectUUID], user.OrganizationUUID, projectUUID)...)
	}

	return New(rules...)
}

// roleRules returns the grants of a role scoped to an organization and,
// when projectUUID is set, to a single project.
func roleRules(role domain.Role, organizationUUID, projectUUID string) []Rule {
	if !role.Valid() || !role.AtLeast(domain.RoleViewer) {
		return nil
	}
	scope := func(action Action, subject SubjectType) Rule {
		return Rule{Action: action, SubjectType: subject, OrganizationUUID: organizationUUID, ProjectUUID: projectUUID}
	}

	rules := []Rule{
		scope(ActionView, SubjectSemanticViewer),
		scope(ActionView, SubjectProject),
	}
	if role.AtLeast(domain.RoleDeveloper) {
		rules = append(rules, scope(ActionManage, SubjectSemanticViewer))
	}
	if role.AtLeast(domain.RoleAdmin) {
		rules = append(rules, scope(ActionManage, SubjectProject))
	}
	return rules
}
