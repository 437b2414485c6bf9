package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// LoginRequest payload for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// CreateContactRequest registers a client contact.
type CreateContactRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// CreateStaffRequest registers a provider staff account.
type CreateStaffRequest struct {
	Name     string      `json:"name" validate:"required,max=200"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Role     domain.Role `json:"role" validate:"required,oneof=ADMIN SUPPORT DEVELOPER SALES"`
}

// UpdateUserRequest carries optional account changes.
type UpdateUserRequest struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=200"`
	Email    *string      `json:"email" validate:"omitempty,email"`
	Password *string      `json:"password" validate:"omitempty,min=8"`
	Role     *domain.Role `json:"role" validate:"omitempty,oneof=ADMIN SUPPORT DEVELOPER SALES"`
	Active   *bool        `json:"active"`
}

// UserResponse is the public view of a user; the password hash never leaves the service.
type UserResponse struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	Email                  string      `json:"email"`
	Role                   domain.Role `json:"role"`
	Active                 bool        `json:"active"`
	ProviderOrganizationID *string     `json:"provider_organization_id,omitempty"`
	ClientOrganizationID   *string     `json:"client_organization_id,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                     u.ID,
		Name:                   u.Name,
		Email:                  u.Email,
		Role:                   u.Role,
		Active:                 u.Active,
		ProviderOrganizationID: u.ProviderOrganizationID,
		ClientOrganizationID:   u.ClientOrganizationID,
		CreatedAt:              u.CreatedAt,
	}
}

// NewUserResponses maps a slice of users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}

// PrincipalResponse describes the caller.
type PrincipalResponse struct {
	ID                     string      `json:"id"`
	Name                   string      `json:"name"`
	Email                  string      `json:"email"`
	Role                   domain.Role `json:"role"`
	ProviderOrganizationID *string     `json:"provider_organization_id,omitempty"`
	ClientOrganizationID   *string     `json:"client_organization_id,omitempty"`
}
