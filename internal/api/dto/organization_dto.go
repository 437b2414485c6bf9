package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateClientRequest payload.
type CreateClientRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// UpdateClientRequest payload.
type UpdateClientRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=200"`
	Active *bool   `json:"active"`
}

// ClientResponse view of a client organization.
type ClientResponse struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Active                 bool      `json:"active"`
	ProviderOrganizationID string    `json:"provider_organization_id"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewClientResponse maps a domain client organization.
func NewClientResponse(c *domain.ClientOrganization) ClientResponse {
	return ClientResponse{
		ID:                     c.ID,
		Name:                   c.Name,
		Active:                 c.Active,
		ProviderOrganizationID: c.ProviderOrganizationID,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

// DeletionResponse reports whether a delete removed or deactivated the record.
type DeletionResponse struct {
	ID      string                 `json:"id"`
	Outcome domain.DeletionOutcome `json:"outcome"`
}
