package ability

// Action a user may perform on a subject
type Action string

const (
	ActionView   Action = "view"
	ActionManage Action = "manage"
)

// SubjectType names the kind of resource a rule applies to
type SubjectType string

const (
	SubjectSemanticViewer SubjectType = "SemanticViewer"
	SubjectProject        SubjectType = "Project"
)

// Subject is a concrete resource checked against the rules
type Subject struct {
	Type             SubjectType
	OrganizationUUID string
	ProjectUUID      string
}

// SemanticViewer returns the subject guarding semantic layer access of a project
func SemanticViewer(organizationUUID, projectUUID string) Subject {
	return Subject{Type: SubjectSemanticViewer, OrganizationUUID: organizationUUID, ProjectUUID: projectUUID}
}

// Rule grants (or, when Inverted, denies) an action on a subject type.
// Empty conditions match any value.
type Rule struct {
	Action           Action
	SubjectType      SubjectType
	OrganizationUUID string
	ProjectUUID      string
	Inverted         bool
}

func (r Rule) matches(action Action, subject Subject) bool {
	if r.SubjectType != subject.Type {
		return false
	}
	if r.Action != action && r.Action != ActionManage {
		return false
	}
	if r.OrganizationUUID != "" && r.OrganizationUUID != subject.OrganizationUUID {
		return false
	}
	if r.ProjectUUID != "" && r.ProjectUUID != subject.ProjectUUID {
		return false
	}
	return true
}

// Ability is the rule set of one user. Later rules take precedence.
type Ability struct {
	rules []Rule
}

// New creates an ability from explicit rules
func New(rules ...Rule) *Ability {
	return &Ability{rules: rules}
}

// Rules returns a copy of the rules
func (a *Ability) Rules() []Rule {
	return append([]Rule(nil), a.rules...)
}

// Can reports whether the action is allowed on the subject
func (a *Ability) Can(action Action, subject Subject) bool {
	for i := len(a.rules) - 1; i >= 0; i-- {
		if a.rules[i].matches(action, subject) {
			return !a.rules[i].Inverted
		}
	}
	return false
}

// Cannot is the negation of Can
func (a *Ability) Cannot(action Action, subject Subject) bool {
	return !a.Can(action, subject)
}
