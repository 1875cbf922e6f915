// Package rbac implements the access policy evaluator: a static, explicit
// permission matrix from (role, resource) to allowed actions. The role
// hierarchy shown in product documentation is descriptive only; permissions
// never inherit between roles, every grant is spelled out in the matrix so
// authorization decisions stay table-driven and auditable.
package rbac

// Role is one of the fixed role names. Keep these stable; they appear in
// token claims and in the matrix configuration.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleHeadmaster Role = "headmaster"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
	RoleParent     Role = "parent"
	RoleFinance    Role = "finance"
	RoleStaff      Role = "staff"
	RoleLibrarian  Role = "librarian"
)

// AllRoles returns every role the system knows, in a stable order.
func AllRoles() []Role {
	return []Role{
		RoleSuperadmin,
		RoleAdmin,
		RoleHeadmaster,
		RoleTeacher,
		RoleStudent,
		RoleParent,
		RoleFinance,
		RoleStaff,
		RoleLibrarian,
	}
}

// ValidRole reports whether name is a known role.
func ValidRole(name string) bool {
	for _, r := range AllRoles() {
		if Role(name) == r {
			return true
		}
	}
	return false
}

// Resource names a protected resource domain of the API surface.
type Resource string

const (
	ResourceUsers      Resource = "users"
	ResourceStudents   Resource = "students"
	ResourceTeachers   Resource = "teachers"
	ResourceClasses    Resource = "classes"
	ResourceSubjects   Resource = "subjects"
	ResourceAttendance Resource = "attendance"
	ResourceGrades     Resource = "grades"
	ResourceFinance    Resource = "finance"
	ResourceDormitory  Resource = "dormitory"
	ResourceLibrary    Resource = "library"
)

// Action is an atomic capability on a resource. The "-own" variants apply
// only when the target entity belongs to the caller.
type Action string

const (
	ActionCreate    Action = "create"
	ActionRead      Action = "read"
	ActionReadOwn   Action = "read-own"
	ActionUpdate    Action = "update"
	ActionUpdateOwn Action = "update-own"
	ActionDelete    Action = "delete"
)

// OwnVariant returns the "-own" counterpart of a plain action, or "" when
// the action has none.
func (a Action) OwnVariant() Action {
	switch a {
	case ActionRead:
		return ActionReadOwn
	case ActionUpdate:
		return ActionUpdateOwn
	}
	return ""
}

// IsOwn reports whether the action is an ownership-scoped variant.
func (a Action) IsOwn() bool {
	return a == ActionReadOwn || a == ActionUpdateOwn
}

func validAction(name string) bool {
	switch Action(name) {
	case ActionCreate, ActionRead, ActionReadOwn, ActionUpdate, ActionUpdateOwn, ActionDelete:
		return true
	}
	return false
}

// ActionSet is the set of actions granted to a (role, resource) pair.
type ActionSet map[Action]struct{}

// Has reports membership.
func (s ActionSet) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// Decision is the authorization outcome. Denied is a first-class negative
// result, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow returns a positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a negative decision with a reason for the audit trail.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}
