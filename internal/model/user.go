package model

// User is the identity attached to a session: a role and, for non-admin
// roles, the home base the user is scoped to.
type User struct {
	Role   string `json:"role"`
	BaseID *int64 `json:"baseId,omitempty"`
}

// Roles.
const (
	RoleAdmin            = "Admin"
	RoleBaseCommander    = "BaseCommander"
	RoleLogisticsOfficer = "LogisticsOfficer"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleBaseCommander, RoleLogisticsOfficer:
		return true
	}
	return false
}

// IsAdmin reports whether the user sees the admin dashboard variant.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HomeBase returns the user's base ID, or 0 if none is set (admins).
func (u User) HomeBase() int64 {
	if u.BaseID == nil {
		return 0
	}
	return *u.BaseID
}
