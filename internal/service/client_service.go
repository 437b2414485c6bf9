package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ClientService manages client organizations.
type ClientService struct {
	store  repository.Store
	logger *zap.Logger
}

// ClientDependencies bundles collaborators for the client service.
type ClientDependencies struct {
	Store  repository.Store
	Logger *zap.Logger
}

// NewClientService constructs the service.
func NewClientService(deps ClientDependencies) *ClientService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{store: deps.Store, logger: logger}
}

// ClientUpdateInput carries optional field changes.
type ClientUpdateInput struct {
	Name   *string
	Active *bool
}

// ClientQuery describes list parameters.
type ClientQuery struct {
	Search   string
	Active   *bool
	Page     int
	PageSize int
}

// Create registers a client organization under the caller's provider.
func (s *ClientService) Create(ctx context.Context, principal *domain.Principal, name string) (*domain.ClientOrganization, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"fields": map[string]any{"name": "required"}})
	}
	providerID, err := resolveProviderID(ctx, s.store, principal)
	if err != nil {
		return nil, err
	}
	client := &domain.ClientOrganization{Name: name, Active: true, ProviderOrganizationID: providerID}
	if err := s.store.Clients().Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Update renames or (de)activates a client organization.
func (s *ClientService) Update(ctx context.Context, principal *domain.Principal, id string, input ClientUpdateInput) (*domain.ClientOrganization, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	client, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name is required", map[string]any{"fields": map[string]any{"name": "required"}})
		}
		client.Name = name
	}
	if input.Active != nil {
		client.Active = *input.Active
	}
	if err := s.store.Clients().Update(ctx, client); err != nil {
		return nil, notFoundOr(err, "client organization")
	}
	return client, nil
}

// Get returns a visible client organization. Contacts asking for another
// organization are refused outright.
func (s *ClientService) Get(ctx context.Context, principal *domain.Principal, id string) (*domain.ClientOrganization, error) {
	return loadVisibleClient(ctx, s.store, principal, id)
}

// List returns visible client organizations ordered by name.
func (s *ClientService) List(ctx context.Context, principal *domain.Principal, query ClientQuery) ([]domain.ClientOrganization, error) {
	filter := repository.ClientFilter{Active: query.Active}
	switch {
	case principal.IsContact():
		clientID := principal.ClientID()
		filter.ID = &clientID
	case principal.IsStaff():
		providerID, err := resolveProviderID(ctx, s.store, principal)
		if err != nil {
			return nil, err
		}
		filter.ProviderID = &providerID
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.Search = &search
	}
	if query.PageSize > 0 {
		filter.Limit = query.PageSize
		if query.Page > 1 {
			filter.Offset = (query.Page - 1) * query.PageSize
		}
	}
	return s.store.Clients().List(ctx, filter)
}

// Delete removes a client organization without tickets, and deactivates one
// that has any.
func (s *ClientService) Delete(ctx context.Context, principal *domain.Principal, id string) (domain.DeletionOutcome, error) {
	if principal.Role != domain.RoleAdmin {
		return "", apperrors.NewForbidden("admin role required")
	}
	var outcome domain.DeletionOutcome
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		client, err := loadVisibleClient(ctx, tx, principal, id)
		if err != nil {
			return err
		}

		tickets, err := tx.Clients().CountTickets(ctx, id)
		if err != nil {
			return err
		}
		if tickets == 0 {
			outcome = domain.DeletionOutcomeDeleted
			return tx.Clients().Delete(ctx, id)
		}
		client.Active = false
		outcome = domain.DeletionOutcomeDeactivated
		return tx.Clients().Update(ctx, client)
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("client organization removed", zap.String("client_id", id), zap.String("outcome", string(outcome)))
	return outcome, nil
}
