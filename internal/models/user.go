package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Role is an application role. Privilege is hierarchical:
// super_admin ⊇ admin ⊇ usuario.
type Role string

const (
	RoleUsuario    Role = "usuario"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// level maps roles onto the privilege ladder. Unknown roles rank below
// usuario so they never satisfy a check.
func (r Role) level() int {
	switch r {
	case RoleSuperAdmin:
		return 3
	case RoleAdmin:
		return 2
	case RoleUsuario:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r carries the privilege of required or more.
func (r Role) AtLeast(required Role) bool {
	return r.level() >= required.level() && required.level() > 0
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.level() > 0
}

// Profile is a registered dashboard user.
type Profile struct {
	ID        surrealmodels.RecordID `json:"id"`
	Email     string                 `json:"email"`
	FullName  *string                `json:"full_name,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// UserRole assigns a role to a user. Roles are stored flat; the hierarchy is
// evaluated by fn::has_role, not by the rows themselves.
type UserRole struct {
	ID   surrealmodels.RecordID `json:"id"`
	User surrealmodels.RecordID `json:"user"`
	Role Role                   `json:"role"`
}
