package domain

import "time"

// Role enumerates principal roles.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleSupport       Role = "SUPPORT"
	RoleDeveloper     Role = "DEVELOPER"
	RoleSales         Role = "SALES"
	RoleClientContact Role = "CLIENT_CONTACT"
)

// StaffRoles are the provider-side roles.
var StaffRoles = []Role{RoleAdmin, RoleSupport, RoleDeveloper, RoleSales}

// IsStaff reports whether the role belongs to provider staff.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleSupport, RoleDeveloper, RoleSales:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.IsStaff() || r == RoleClientContact
}

// User is a principal: provider staff or a client contact.
type User struct {
	ID                     string
	Name                   string
	Email                  string
	PasswordHash           string
	Role                   Role
	Active                 bool
	ProviderOrganizationID *string
	ClientOrganizationID   *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// UserDependents counts records that prevent a hard delete.
type UserDependents struct {
	CreatedTickets  int64
	AssignedTickets int64
	HistoryEntries  int64
}

// Total sums every dependent record.
func (d UserDependents) Total() int64 {
	return d.CreatedTickets + d.AssignedTickets + d.HistoryEntries
}
