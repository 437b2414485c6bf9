package domain

import "time"

// ProviderOrganization is the support-providing company.
type ProviderOrganization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ClientOrganization is a company receiving support from exactly one provider.
type ClientOrganization struct {
	ID                     string
	Name                   string
	Active                 bool
	ProviderOrganizationID string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DeletionOutcome tells callers whether a delete removed the row or only deactivated it.
type DeletionOutcome string

const (
	DeletionOutcomeDeleted     DeletionOutcome = "DELETED"
	DeletionOutcomeDeactivated DeletionOutcome = "DEACTIVATED"
)
