package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// ManagementField names a ticket field a management update may write.
type ManagementField string

const (
	FieldStatus      ManagementField = "status"
	FieldPriority    ManagementField = "priority"
	FieldCategory    ManagementField = "category"
	FieldAssignedTo  ManagementField = "assigned_to"
	FieldComment     ManagementField = "comment"
	FieldAttachments ManagementField = "attachments"
	FieldInternal    ManagementField = "is_internal"
)

var staffFields = fieldSet(FieldStatus, FieldPriority, FieldCategory, FieldAssignedTo, FieldComment, FieldAttachments, FieldInternal)

// managementPolicy lists the fields each role may set. Anything else is
// re-derived from the stored ticket.
var managementPolicy = map[domain.Role]map[ManagementField]bool{
	domain.RoleAdmin:         staffFields,
	domain.RoleSupport:       staffFields,
	domain.RoleDeveloper:     staffFields,
	domain.RoleSales:         staffFields,
	domain.RoleClientContact: fieldSet(FieldComment, FieldAttachments),
}

func fieldSet(fields ...ManagementField) map[ManagementField]bool {
	set := make(map[ManagementField]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// CanSet reports whether role may write field in a management update.
func CanSet(role domain.Role, field ManagementField) bool {
	return managementPolicy[role][field]
}

// allowedTransitions: any open ticket may move to any status (the board
// allows free moves); closed and cancelled tickets accept nothing.
var allowedTransitions = func() map[domain.TicketStatus]map[domain.TicketStatus]bool {
	table := make(map[domain.TicketStatus]map[domain.TicketStatus]bool, len(domain.TicketStatuses))
	for _, from := range domain.TicketStatuses {
		table[from] = map[domain.TicketStatus]bool{}
		if from.Terminal() {
			continue
		}
		for _, to := range domain.TicketStatuses {
			table[from][to] = true
		}
	}
	return table
}()

func isValidTransition(current, next domain.TicketStatus) bool {
	return allowedTransitions[current][next]
}

// ticketScopeFor derives the list predicate for principal. orgView is the
// client organization page being viewed, if any.
func ticketScopeFor(ctx context.Context, store repository.Store, principal *domain.Principal, orgView string) (repository.TicketScope, error) {
	switch {
	case principal.IsContact():
		clientID := principal.ClientID()
		if clientID == "" {
			return repository.TicketScope{}, apperrors.NewForbidden("contact is not linked to a client organization")
		}
		if orgView != "" && orgView != clientID {
			return repository.TicketScope{}, apperrors.NewForbidden("cannot view another organization")
		}
		scope := repository.TicketScope{ClientID: &clientID}
		if orgView == "" {
			creatorID := principal.ID
			scope.CreatorID = &creatorID
		}
		return scope, nil
	case principal.IsStaff():
		providerID, err := resolveProviderID(ctx, store, principal)
		if err != nil {
			return repository.TicketScope{}, err
		}
		scope := repository.TicketScope{ProviderID: &providerID}
		if orgView != "" {
			scope.ClientID = &orgView
		}
		return scope, nil
	default:
		return repository.TicketScope{}, apperrors.NewForbidden("unknown role")
	}
}

// canReadTicket applies the visibility table to a single ticket.
func canReadTicket(providerID string, principal *domain.Principal, ticket *domain.Ticket) bool {
	if principal.IsContact() {
		return ticket.CreatorID == principal.ID || ticket.ClientOrganizationID == principal.ClientID()
	}
	return principal.IsStaff() && ticket.ProviderOrganizationID == providerID
}

// loadVisibleTicket resolves ref, a ticket id or a folio, and returns
// NotFound when the ticket is outside the principal's scope.
func loadVisibleTicket(ctx context.Context, store repository.Store, principal *domain.Principal, ref string) (*domain.Ticket, error) {
	var (
		ticket *domain.Ticket
		err    error
	)
	if IsFolio(ref) {
		ticket, err = store.Tickets().GetByFolio(ctx, ref)
	} else {
		ticket, err = store.Tickets().GetByID(ctx, ref)
	}
	if err != nil {
		return nil, notFoundOr(err, "ticket")
	}
	providerID := ""
	if principal.IsStaff() {
		if providerID, err = resolveProviderID(ctx, store, principal); err != nil {
			return nil, err
		}
	}
	if !canReadTicket(providerID, principal, ticket) {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

// canViewClient applies the client-organization column of the visibility table.
func canViewClient(providerID string, principal *domain.Principal, client *domain.ClientOrganization) bool {
	if principal.IsContact() {
		return client.ID == principal.ClientID()
	}
	return principal.IsStaff() && client.ProviderOrganizationID == providerID
}

// loadVisibleClient returns the client organization or NotFound when it is
// outside the principal's scope. Contacts get Forbidden for any other
// organization before the lookup.
func loadVisibleClient(ctx context.Context, store repository.Store, principal *domain.Principal, id string) (*domain.ClientOrganization, error) {
	if principal.IsContact() && id != principal.ClientID() {
		return nil, apperrors.NewForbidden("cannot view another organization")
	}
	providerID := ""
	if principal.IsStaff() {
		var err error
		if providerID, err = resolveProviderID(ctx, store, principal); err != nil {
			return nil, err
		}
	}
	client, err := store.Clients().GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "client organization")
	}
	if !canViewClient(providerID, principal, client) {
		return nil, apperrors.NewNotFound("client organization", nil)
	}
	return client, nil
}

// resolveProviderID returns the principal's provider, falling back to the
// only configured provider for single-tenant installs.
func resolveProviderID(ctx context.Context, store repository.Store, principal *domain.Principal) (string, error) {
	if id := principal.ProviderID(); id != "" {
		return id, nil
	}
	providers, err := store.Providers().List(ctx)
	if err != nil {
		return "", err
	}
	if len(providers) != 1 {
		return "", apperrors.NewForbidden("principal has no provider organization")
	}
	return providers[0].ID, nil
}

func notFoundOr(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}
