package domain

// Principal is the authenticated caller of every operation.
type Principal struct {
	ID                     string
	Name                   string
	Email                  string
	Role                   Role
	ProviderOrganizationID *string
	ClientOrganizationID   *string
}

// IsStaff reports whether the principal acts for a provider.
func (p *Principal) IsStaff() bool {
	return p != nil && p.Role.IsStaff()
}

// IsContact reports whether the principal is a client contact.
func (p *Principal) IsContact() bool {
	return p != nil && p.Role == RoleClientContact
}

// ProviderID returns the provider id or "" when unset.
func (p *Principal) ProviderID() string {
	if p == nil || p.ProviderOrganizationID == nil {
		return ""
	}
	return *p.ProviderOrganizationID
}

// ClientID returns the client organization id or "" when unset.
func (p *Principal) ClientID() string {
	if p == nil || p.ClientOrganizationID == nil {
		return ""
	}
	return *p.ClientOrganizationID
}

// PrincipalFromUser builds the principal for a stored user.
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Role:                   u.Role,
		ProviderOrganizationID: u.ProviderOrganizationID,
		ClientOrganizationID:   u.ClientOrganizationID,
	}
}
