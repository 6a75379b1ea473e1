// Package actor carries the verified caller identity through every core
// operation as an explicit parameter: one immutable struct, never ambient
// request-scoped or goroutine-local state.
package actor

// Role is the set of principals the authorization policy (internal/policy)
// reasons about.
type Role string

const (
	RoleCitizen               Role = "CITIZEN"
	RoleStaff                 Role = "STAFF"
	RoleDeptHead              Role = "DEPT_HEAD"
	RoleMunicipalCommissioner Role = "MUNICIPAL_COMMISSIONER"
	RoleAdmin                 Role = "ADMIN"
	RoleSuperAdmin            Role = "SUPER_ADMIN"
	RoleSystem                Role = "SYSTEM"
)

// Kind distinguishes a human-originated request from one originated by this
// service itself (the scheduler, the auto-close sweep).
type Kind string

const (
	KindUser   Kind = "USER"
	KindSystem Kind = "SYSTEM"
)

// Context is the verified identity passed explicitly to every engine call.
// It is produced once by the HTTP auth middleware (or by the scheduler, for
// SYSTEM actors) and never stored in package-level or goroutine-local state.
type Context struct {
	Kind         Kind
	UserID       int64 // zero when Kind == KindSystem
	Role         Role
	DepartmentID int64 // zero when the role has no home department
	hasDept      bool
}

// System is the one principal allowed to perform automatic transitions
// (timeout close, scheduler escalation).
var System = Context{Kind: KindSystem, Role: RoleSystem}

// NewUserContext builds an actor context for a human caller.
func NewUserContext(userID int64, role Role, departmentID int64, hasDepartment bool) Context {
	return Context{
		Kind:         KindUser,
		UserID:       userID,
		Role:         role,
		DepartmentID: departmentID,
		hasDept:      hasDepartment,
	}
}

// HasDepartment reports whether DepartmentID is meaningful for this actor
// (STAFF and DEPT_HEAD have one; CITIZEN, ADMIN, SUPER_ADMIN do not).
func (c Context) HasDepartment() bool { return c.hasDept }

// IsSystem reports whether this is the SYSTEM principal.
func (c Context) IsSystem() bool { return c.Kind == KindSystem }
