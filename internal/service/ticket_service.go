package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/ratelimit"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/richtext"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	boardLimit      = 500
)

// TicketService is the only writer of ticket state.
type TicketService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	sanitizer  *richtext.Sanitizer
	limiter    ratelimit.Limiter
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Sanitizer  *richtext.Sanitizer
	Limiter    ratelimit.Limiter
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		sanitizer:  deps.Sanitizer,
		limiter:    deps.Limiter,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if s.sanitizer == nil {
		s.sanitizer = richtext.NewSanitizer()
	}
	if s.limiter == nil {
		s.limiter = ratelimit.Unlimited{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	ClientOrganizationID string
	RequesterContactID   *string
	Title                string
	Description          string
	Category             domain.TicketCategory
	Priority             domain.TicketPriority
	Attachments          []domain.Attachment
}

// ManagementUpdateInput carries a full management update. Nil fields keep the
// stored value; an empty AssignedToID clears the assignee.
type ManagementUpdateInput struct {
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	Category     *domain.TicketCategory
	AssignedToID *string
	Comment      string
	Attachments  []domain.Attachment
	IsInternal   bool
	Notify       bool
}

// TicketQuery describes list parameters.
type TicketQuery struct {
	Statuses         []domain.TicketStatus
	Categories       []domain.TicketCategory
	Priorities       []domain.TicketPriority
	AssignedToID     *string
	TitleSearch      string
	ClientNameSearch string
	ClientID         string
	SortField        string
	SortDesc         bool
	Page             int
	PageSize         int
}

// TicketPage is a page of visible tickets plus per-status counts for the
// whole visible scope.
type TicketPage struct {
	Items        []domain.TicketView
	Total        int64
	Page         int
	PageSize     int
	StatusCounts map[domain.TicketStatus]int64
}

// HistoryItem is a history entry with its author's display name.
type HistoryItem struct {
	domain.TicketHistoryEntry
	AuthorName string
}

// TicketDetail is a ticket with its visible timeline.
type TicketDetail struct {
	Ticket         *domain.Ticket
	ClientName     string
	CreatorName    string
	CreatorEmail   string
	AssignedToName *string
	History        []HistoryItem
}

// UpdateResult is returned by management operations.
type UpdateResult struct {
	Ticket *domain.Ticket
	Entry  *domain.TicketHistoryEntry
}

// Create files a new ticket and allocates its folio in the same transaction.
func (s *TicketService) Create(ctx context.Context, principal *domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := s.sanitizer.HTML(input.Description)
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	fields := map[string]any{}
	if strings.TrimSpace(input.ClientOrganizationID) == "" {
		fields["client_organization_id"] = "required"
	}
	if title == "" {
		fields["title"] = "required"
	}
	if s.sanitizer.IsBlank(description) {
		fields["description"] = "required"
	}
	if !input.Category.Valid() {
		fields["category"] = "must be one of SUPPORT, DEVELOPMENT, SALES"
	}
	if !priority.Valid() {
		fields["priority"] = "must be one of LOW, MEDIUM, HIGH, URGENT"
	}
	if err := validateAttachments(input.Attachments); err != nil {
		fields["attachments"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", map[string]any{"fields": fields})
	}

	var requesterID string
	switch {
	case principal.IsContact():
		if input.ClientOrganizationID != principal.ClientID() {
			return nil, apperrors.NewForbidden("contacts may only file tickets for their own organization")
		}
		if input.RequesterContactID != nil && *input.RequesterContactID != "" && *input.RequesterContactID != principal.ID {
			return nil, apperrors.NewForbidden("contacts may only file tickets for themselves")
		}
		requesterID = principal.ID
	case principal.IsStaff():
		if input.RequesterContactID == nil || strings.TrimSpace(*input.RequesterContactID) == "" {
			return nil, apperrors.NewValidationError("requester contact is required", map[string]any{"fields": map[string]any{"requester_contact_id": "required"}})
		}
		requesterID = strings.TrimSpace(*input.RequesterContactID)
	default:
		return nil, apperrors.NewForbidden("role may not create tickets")
	}

	if err := s.checkRateLimit(ctx, principal); err != nil {
		return nil, err
	}

	var (
		ticket    *domain.Ticket
		requester *domain.User
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		client, err := tx.Clients().GetByID(ctx, input.ClientOrganizationID)
		if err != nil {
			return notFoundOr(err, "client organization")
		}
		if principal.IsStaff() {
			providerID, err := resolveProviderID(ctx, tx, principal)
			if err != nil {
				return err
			}
			if client.ProviderOrganizationID != providerID {
				return apperrors.NewNotFound("client organization", nil)
			}
		}
		if !client.Active {
			return apperrors.NewValidationError("client organization is inactive", nil)
		}

		requester, err = tx.Users().GetByID(ctx, requesterID)
		if err != nil {
			return apperrors.NewValidationError("requester contact not found", nil)
		}
		if requester.Role != domain.RoleClientContact || requester.ClientOrganizationID == nil || *requester.ClientOrganizationID != client.ID {
			return apperrors.NewValidationError("requester must be a contact of the client organization", nil)
		}
		if !requester.Active {
			return apperrors.NewValidationError("requester contact is inactive", nil)
		}

		folio, seq, err := AllocateFolio(ctx, tx, input.Category)
		if err != nil {
			return err
		}

		ticket = &domain.Ticket{
			Folio:                  folio,
			SequenceNumber:         seq,
			Title:                  title,
			Description:            description,
			Category:               input.Category,
			Priority:               priority,
			Status:                 domain.TicketStatusPending,
			CreatorID:              requester.ID,
			CreatedByID:            principal.ID,
			ClientOrganizationID:   client.ID,
			ProviderOrganizationID: client.ProviderOrganizationID,
			Attachments:            input.Attachments,
		}
		return tx.Tickets().Create(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TicketCreated(string(ticket.Category))
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("folio", ticket.Folio),
		zap.String("created_by", principal.ID))

	names := make([]string, 0, len(ticket.Attachments))
	for _, att := range ticket.Attachments {
		names = append(names, att.Name)
	}
	s.publish(ctx, principal, ticket, events.EventTicketCreated, events.TicketCreatedPayload{
		Requester:       requesterOf(requester),
		Title:           ticket.Title,
		Category:        ticket.Category,
		Priority:        ticket.Priority,
		AttachmentNames: names,
	})
	return ticket, nil
}

// QuickStatusMove applies a board move. Escalation must name an assignee.
func (s *TicketService) QuickStatusMove(ctx context.Context, principal *domain.Principal, ticketID string, newStatus domain.TicketStatus, assigneeID *string) (*UpdateResult, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("only staff may move tickets")
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": newStatus})
	}
	if assigneeID != nil && strings.TrimSpace(*assigneeID) == "" {
		assigneeID = nil
	}
	if newStatus == domain.TicketStatusEscalated && assigneeID == nil {
		return nil, apperrors.NewValidationError("escalation requires an assignee", map[string]any{"fields": map[string]any{"assigned_to_id": "required"}})
	}

	var (
		result    *UpdateResult
		oldStatus domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := loadVisibleTicket(ctx, tx, principal, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status.Terminal() {
			return apperrors.NewInvalidState("ticket is closed", map[string]any{"status": ticket.Status})
		}
		if !isValidTransition(ticket.Status, newStatus) {
			return apperrors.NewInvalidState("transition not allowed", map[string]any{"from": ticket.Status, "to": newStatus})
		}

		// A named assignee must still be eligible even when it is the current one.
		if assigneeID != nil {
			if err := s.checkAssignee(ctx, tx, ticket, *assigneeID); err != nil {
				return err
			}
		}
		assigneeChanged := assigneeID != nil && !sameID(ticket.AssignedToID, *assigneeID)
		if ticket.Status == newStatus && !assigneeChanged {
			result = &UpdateResult{Ticket: ticket}
			return nil
		}

		oldStatus = ticket.Status
		ticket.Status = newStatus
		entry := &domain.TicketHistoryEntry{
			TicketID:       ticket.ID,
			AuthorUserID:   principal.ID,
			SnapshotStatus: newStatus,
			IsInternal:     true,
		}
		if assigneeChanged {
			id := *assigneeID
			ticket.AssignedToID = &id
			entry.SnapshotAssignedToID = &id
		}
		comment := fmt.Sprintf("Status moved from %s to %s", oldStatus, newStatus)
		entry.Comment = &comment

		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := tx.History().Create(ctx, entry); err != nil {
			return err
		}
		result = &UpdateResult{Ticket: ticket, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Entry == nil {
		return result, nil
	}

	if oldStatus != newStatus {
		s.metrics.StatusChanged(string(newStatus))
	}
	s.publish(ctx, principal, result.Ticket, events.EventTicketStatusMoved, events.TicketStatusMovedPayload{
		OldStatus:    oldStatus,
		NewStatus:    newStatus,
		AssignedToID: result.Ticket.AssignedToID,
	})
	return result, nil
}

// FullManagementUpdate appends a history entry and applies the field changes
// the principal's role permits.
func (s *TicketService) FullManagementUpdate(ctx context.Context, principal *domain.Principal, ticketID string, input ManagementUpdateInput) (*UpdateResult, error) {
	if !principal.IsStaff() && !principal.IsContact() {
		return nil, apperrors.NewForbidden("role may not update tickets")
	}
	if err := validateAttachments(input.Attachments); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	comment := s.sanitizer.HTML(input.Comment)
	hasComment := !s.sanitizer.IsBlank(comment)

	var (
		result    *UpdateResult
		oldStatus domain.TicketStatus
		requester *domain.User
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		ticket, err := loadVisibleTicket(ctx, tx, principal, ticketID)
		if err != nil {
			return err
		}
		if ticket.Status.Terminal() {
			return apperrors.NewInvalidState("ticket is closed", map[string]any{"status": ticket.Status})
		}

		role := principal.Role
		status, priority, category, assignee := ticket.Status, ticket.Priority, ticket.Category, ticket.AssignedToID
		isInternal := input.IsInternal && CanSet(role, FieldInternal)

		if input.Status != nil && CanSet(role, FieldStatus) {
			if !input.Status.Valid() {
				return apperrors.NewValidationError("invalid status", nil)
			}
			status = *input.Status
		}
		if input.Priority != nil && CanSet(role, FieldPriority) {
			if !input.Priority.Valid() {
				return apperrors.NewValidationError("invalid priority", nil)
			}
			priority = *input.Priority
		}
		if input.Category != nil && CanSet(role, FieldCategory) {
			if !input.Category.Valid() {
				return apperrors.NewValidationError("invalid category", nil)
			}
			category = *input.Category
		}
		if input.AssignedToID != nil && CanSet(role, FieldAssignedTo) {
			if id := strings.TrimSpace(*input.AssignedToID); id == "" {
				assignee = nil
			} else {
				assignee = &id
			}
		}

		if !isValidTransition(ticket.Status, status) {
			return apperrors.NewInvalidState("transition not allowed", map[string]any{"from": ticket.Status, "to": status})
		}
		if status == domain.TicketStatusEscalated && assignee == nil {
			return apperrors.NewValidationError("escalation requires an assignee", map[string]any{"fields": map[string]any{"assigned_to_id": "required"}})
		}

		assigneeChanged := !samePtr(ticket.AssignedToID, assignee)
		assigneeNamed := input.AssignedToID != nil && CanSet(role, FieldAssignedTo)
		escalating := status == domain.TicketStatusEscalated && ticket.Status != domain.TicketStatusEscalated
		if assignee != nil && (assigneeChanged || assigneeNamed || escalating) {
			if err := s.checkAssignee(ctx, tx, ticket, *assignee); err != nil {
				return err
			}
		}
		changed := status != ticket.Status || priority != ticket.Priority || category != ticket.Category || assigneeChanged
		if !changed && !hasComment && len(input.Attachments) == 0 {
			return apperrors.NewValidationError("a comment, attachment or field change is required", nil)
		}

		entry := &domain.TicketHistoryEntry{
			TicketID:       ticket.ID,
			AuthorUserID:   principal.ID,
			SnapshotStatus: status,
			Attachments:    input.Attachments,
			IsInternal:     isInternal,
		}
		if priority != ticket.Priority {
			p := priority
			entry.SnapshotPriority = &p
		}
		if category != ticket.Category {
			c := category
			entry.SnapshotCategory = &c
		}
		if assigneeChanged && assignee != nil {
			a := *assignee
			entry.SnapshotAssignedToID = &a
		}
		if hasComment {
			entry.Comment = &comment
		}

		oldStatus = ticket.Status
		ticket.Status, ticket.Priority, ticket.Category, ticket.AssignedToID = status, priority, category, assignee

		if err := tx.History().Create(ctx, entry); err != nil {
			return err
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}

		requester, err = tx.Users().GetByID(ctx, ticket.CreatorID)
		if err != nil {
			return err
		}
		result = &UpdateResult{Ticket: ticket, Entry: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldStatus != result.Ticket.Status {
		s.metrics.StatusChanged(string(result.Ticket.Status))
	}
	commentHTML := ""
	if result.Entry.Comment != nil {
		commentHTML = *result.Entry.Comment
	}
	s.publish(ctx, principal, result.Ticket, events.EventTicketUpdated, events.TicketUpdatedPayload{
		Requester:   requesterOf(requester),
		Title:       result.Ticket.Title,
		OldStatus:   oldStatus,
		NewStatus:   result.Ticket.Status,
		CommentHTML: commentHTML,
		IsInternal:  result.Entry.IsInternal,
		Notify:      input.Notify,
	})
	return result, nil
}

// Get returns a visible ticket with its timeline; internal entries are
// dropped for contacts.
func (s *TicketService) Get(ctx context.Context, principal *domain.Principal, ticketID string) (*TicketDetail, error) {
	ticket, err := loadVisibleTicket(ctx, s.store, principal, ticketID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.History().ListByTicket(ctx, ticket.ID, principal.IsStaff())
	if err != nil {
		return nil, err
	}

	names := newNameCache(s.store)
	detail := &TicketDetail{Ticket: ticket}
	if client, err := s.store.Clients().GetByID(ctx, ticket.ClientOrganizationID); err == nil {
		detail.ClientName = client.Name
	}
	if creator, err := names.user(ctx, ticket.CreatorID); err == nil {
		detail.CreatorName = creator.Name
		detail.CreatorEmail = creator.Email
	}
	if ticket.AssignedToID != nil {
		if assignee, err := names.user(ctx, *ticket.AssignedToID); err == nil {
			name := assignee.Name
			detail.AssignedToName = &name
		}
	}

	detail.History = make([]HistoryItem, 0, len(entries))
	for _, entry := range entries {
		item := HistoryItem{TicketHistoryEntry: entry}
		if author, err := names.user(ctx, entry.AuthorUserID); err == nil {
			item.AuthorName = author.Name
		}
		detail.History = append(detail.History, item)
	}
	return detail, nil
}

// List returns one page of visible tickets.
func (s *TicketService) List(ctx context.Context, principal *domain.Principal, query TicketQuery) (*TicketPage, error) {
	filter, err := s.buildFilter(ctx, principal, query)
	if err != nil {
		return nil, err
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	items, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Tickets().Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Tickets().CountByStatus(ctx, filter.Scope)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Items: items, Total: total, Page: page, PageSize: size, StatusCounts: counts}, nil
}

// Board groups visible tickets by status for the kanban view.
func (s *TicketService) Board(ctx context.Context, principal *domain.Principal, query TicketQuery) (map[domain.TicketStatus][]domain.TicketView, error) {
	filter, err := s.buildFilter(ctx, principal, query)
	if err != nil {
		return nil, err
	}
	filter.Limit = boardLimit

	items, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	board := make(map[domain.TicketStatus][]domain.TicketView, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		board[status] = []domain.TicketView{}
	}
	for _, item := range items {
		board[item.Status] = append(board[item.Status], item)
	}
	return board, nil
}

// AssignableStaff lists active staff sharing the ticket's provider.
func (s *TicketService) AssignableStaff(ctx context.Context, principal *domain.Principal, ticketID string) ([]domain.User, error) {
	if !principal.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	ticket, err := loadVisibleTicket(ctx, s.store, principal, ticketID)
	if err != nil {
		return nil, err
	}
	active := true
	return s.store.Users().List(ctx, repository.UserFilter{
		ProviderID: &ticket.ProviderOrganizationID,
		Roles:      domain.StaffRoles,
		Active:     &active,
	})
}

func (s *TicketService) buildFilter(ctx context.Context, principal *domain.Principal, query TicketQuery) (repository.TicketFilter, error) {
	scope, err := ticketScopeFor(ctx, s.store, principal, strings.TrimSpace(query.ClientID))
	if err != nil {
		return repository.TicketFilter{}, err
	}

	sort := repository.DefaultTicketSort
	if query.SortField != "" {
		if _, ok := repository.TicketSortColumns[query.SortField]; !ok {
			return repository.TicketFilter{}, apperrors.NewValidationError("unsupported sort field", map[string]any{"sort": query.SortField})
		}
		sort = repository.TicketSort{Field: query.SortField, Desc: query.SortDesc}
	}
	for _, st := range query.Statuses {
		if !st.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("invalid status filter", map[string]any{"status": st})
		}
	}
	for _, c := range query.Categories {
		if !c.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("invalid category filter", map[string]any{"category": c})
		}
	}
	for _, p := range query.Priorities {
		if !p.Valid() {
			return repository.TicketFilter{}, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": p})
		}
	}

	filter := repository.TicketFilter{
		Scope:        scope,
		Statuses:     query.Statuses,
		Categories:   query.Categories,
		Priorities:   query.Priorities,
		AssignedToID: query.AssignedToID,
		Sort:         sort,
	}
	if t := strings.TrimSpace(query.TitleSearch); t != "" {
		filter.TitleSearch = &t
	}
	if c := strings.TrimSpace(query.ClientNameSearch); c != "" {
		filter.ClientNameSearch = &c
	}
	return filter, nil
}

func (s *TicketService) checkRateLimit(ctx context.Context, principal *domain.Principal) error {
	allowed, err := s.limiter.Allow(ctx, "tickets:create:"+principal.ID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !allowed {
		s.metrics.RateLimited()
		return apperrors.NewTooManyRequests("too many tickets created, try again later")
	}
	return nil
}

func (s *TicketService) checkAssignee(ctx context.Context, tx repository.Store, ticket *domain.Ticket, assigneeID string) error {
	assignee, err := tx.Users().GetByID(ctx, assigneeID)
	if err != nil {
		return apperrors.NewValidationError("assignee not found", map[string]any{"assigned_to_id": assigneeID})
	}
	if !assignee.Role.IsStaff() || !assignee.Active || !sameID(assignee.ProviderOrganizationID, ticket.ProviderOrganizationID) {
		return apperrors.NewValidationError("assignee must be active staff of the ticket's provider", map[string]any{"assigned_to_id": assigneeID})
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, principal *domain.Principal, ticket *domain.Ticket, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		Folio:     ticket.Folio,
		Actor:     events.Actor{UserID: principal.ID, Name: principal.Name, Role: principal.Role},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}

func requesterOf(u *domain.User) events.Requester {
	if u == nil {
		return events.Requester{}
	}
	return events.Requester{ID: u.ID, Name: u.Name, Email: u.Email}
}

func validateAttachments(attachments []domain.Attachment) error {
	for i, att := range attachments {
		if strings.TrimSpace(att.URL) == "" || strings.TrimSpace(att.Name) == "" {
			return fmt.Errorf("attachment %d requires url and name", i)
		}
	}
	return nil
}

func sameID(ptr *string, id string) bool {
	return ptr != nil && *ptr == id
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// nameCache memoizes user lookups while rendering a timeline.
type nameCache struct {
	store repository.Store
	users map[string]*domain.User
}

func newNameCache(store repository.Store) *nameCache {
	return &nameCache{store: store, users: map[string]*domain.User{}}
}

func (c *nameCache) user(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	u, err := c.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.users[id] = u
	return u, nil
}
