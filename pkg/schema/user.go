// Package schema defines the data structures shared by the Comply-X service,
// its SDK and its CLI.
package schema

import "time"

// Role is a user's position in the role registry.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleAuditor  Role = "auditor"
	RoleEmployee Role = "employee"
	RoleViewer   Role = "viewer"
)

// Roles lists every role, most privileged first.
var Roles = []Role{RoleAdmin, RoleManager, RoleAuditor, RoleEmployee, RoleViewer}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// User represents an identity known to the service.
// Users are never hard-deleted; IsActive=false deactivates them.
type User struct {
	ID                    string    `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	FullName              string    `json:"full_name"`
	Role                  Role      `json:"role"`
	Department            string    `json:"department"`
	AreasOfResponsibility []string  `json:"areas_of_responsibility,omitempty"`
	IsActive              bool      `json:"is_active"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserInput is the payload for creating a user.
type UserInput struct {
	Username              string   `json:"username" validate:"required,min=3,max=100"`
	Email                 string   `json:"email" validate:"required,email"`
	FullName              string   `json:"full_name" validate:"max=200"`
	Role                  Role     `json:"role" validate:"required,oneof=admin manager auditor employee viewer"`
	Department            string   `json:"department" validate:"max=100"`
	AreasOfResponsibility []string `json:"areas_of_responsibility,omitempty"`
}

// UserUpdate is the payload for profile and role changes. Nil fields are left untouched.
type UserUpdate struct {
	Email                 *string   `json:"email,omitempty" validate:"omitempty,email"`
	FullName              *string   `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Role                  *Role     `json:"role,omitempty" validate:"omitempty,oneof=admin manager auditor employee viewer"`
	Department            *string   `json:"department,omitempty" validate:"omitempty,max=100"`
	AreasOfResponsibility *[]string `json:"areas_of_responsibility,omitempty"`
}
