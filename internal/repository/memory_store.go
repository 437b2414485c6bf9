package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/support-desk/internal/domain"
)

// memoryState is the full dataset; transactions snapshot and restore it.
type memoryState struct {
	providers map[string]domain.ProviderOrganization
	clients   map[string]domain.ClientOrganization
	users     map[string]domain.User
	tickets   map[string]domain.Ticket
	history   []domain.TicketHistoryEntry
	sequences map[domain.TicketCategory]int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		providers: map[string]domain.ProviderOrganization{},
		clients:   map[string]domain.ClientOrganization{},
		users:     map[string]domain.User{},
		tickets:   map[string]domain.Ticket{},
		sequences: map[domain.TicketCategory]int64{},
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.providers {
		c.providers[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	c.history = append(c.history, s.history...)
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	return c
}

type memoryDB struct {
	mu    sync.Mutex
	state *memoryState
}

// MemoryStore is an in-process Store used when no Postgres DSN is configured
// and by tests. A transaction holds the store lock until it finishes, which
// serializes writers the way the counter row lock does in Postgres.
type MemoryStore struct {
	db   *memoryDB
	inTx bool
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{db: &memoryDB{state: newMemoryState()}}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.db.mu.Lock()
	return s.db.mu.Unlock
}

func (s *MemoryStore) Providers() ProviderRepository    { return memoryProviders{s} }
func (s *MemoryStore) Clients() ClientRepository        { return memoryClients{s} }
func (s *MemoryStore) Users() UserRepository            { return memoryUsers{s} }
func (s *MemoryStore) Tickets() TicketRepository        { return memoryTickets{s} }
func (s *MemoryStore) History() TicketHistoryRepository { return memoryHistory{s} }
func (s *MemoryStore) Sequences() SequenceRepository    { return memorySequences{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.db.state.clone()
	if err := fn(&MemoryStore{db: s.db, inTx: true}); err != nil {
		s.db.state = snapshot
		return err
	}
	return nil
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func now() time.Time {
	return time.Now().UTC()
}

type memoryProviders struct{ s *MemoryStore }

func (r memoryProviders) Create(_ context.Context, provider *domain.ProviderOrganization) error {
	defer r.s.lock()()
	provider.ID = uuid.NewString()
	provider.CreatedAt = now()
	r.s.db.state.providers[provider.ID] = *provider
	return nil
}

func (r memoryProviders) GetByID(_ context.Context, id string) (*domain.ProviderOrganization, error) {
	defer r.s.lock()()
	provider, ok := r.s.db.state.providers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &provider, nil
}

func (r memoryProviders) List(_ context.Context) ([]domain.ProviderOrganization, error) {
	defer r.s.lock()()
	result := make([]domain.ProviderOrganization, 0, len(r.s.db.state.providers))
	for _, provider := range r.s.db.state.providers {
		result = append(result, provider)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memoryClients struct{ s *MemoryStore }

func (r memoryClients) Create(_ context.Context, client *domain.ClientOrganization) error {
	defer r.s.lock()()
	if _, ok := r.s.db.state.providers[client.ProviderOrganizationID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "client_organizations_provider_organization_id_fkey"}
	}
	client.ID = uuid.NewString()
	client.CreatedAt = now()
	client.UpdatedAt = client.CreatedAt
	r.s.db.state.clients[client.ID] = *client
	return nil
}

func (r memoryClients) Update(_ context.Context, client *domain.ClientOrganization) error {
	defer r.s.lock()()
	stored, ok := r.s.db.state.clients[client.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Name = client.Name
	stored.Active = client.Active
	stored.UpdatedAt = now()
	client.UpdatedAt = stored.UpdatedAt
	r.s.db.state.clients[client.ID] = stored
	return nil
}

func (r memoryClients) Delete(_ context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.db.state.clients[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.db.state.clients, id)
	for userID, user := range r.s.db.state.users {
		if equalPtr(user.ClientOrganizationID, id) {
			delete(r.s.db.state.users, userID)
		}
	}
	return nil
}

func (r memoryClients) GetByID(_ context.Context, id string) (*domain.ClientOrganization, error) {
	defer r.s.lock()()
	client, ok := r.s.db.state.clients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &client, nil
}

func (r memoryClients) List(_ context.Context, filter ClientFilter) ([]domain.ClientOrganization, error) {
	defer r.s.lock()()
	var result []domain.ClientOrganization
	for _, client := range r.s.db.state.clients {
		if filter.ProviderID != nil && client.ProviderOrganizationID != *filter.ProviderID {
			continue
		}
		if filter.ID != nil && client.ID != *filter.ID {
			continue
		}
		if filter.Active != nil && client.Active != *filter.Active {
			continue
		}
		if filter.Search != nil && !containsFold(client.Name, *filter.Search) {
			continue
		}
		result = append(result, client)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	return paginate(result, limit, filter.Offset), nil
}

func (r memoryClients) CountTickets(_ context.Context, id string) (int64, error) {
	defer r.s.lock()()
	var count int64
	for _, ticket := range r.s.db.state.tickets {
		if ticket.ClientOrganizationID == id {
			count++
		}
	}
	return count, nil
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) emailTaken(email, exceptID string) bool {
	for _, user := range r.s.db.state.users {
		if user.ID != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	defer r.s.lock()()
	if r.emailTaken(user.Email, "") {
		return uniqueViolation("users_email_key")
	}
	user.ID = uuid.NewString()
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	r.s.db.state.users[user.ID] = *user
	return nil
}

func (r memoryUsers) Update(_ context.Context, user *domain.User) error {
	defer r.s.lock()()
	stored, ok := r.s.db.state.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.emailTaken(user.Email, user.ID) {
		return uniqueViolation("users_email_key")
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.PasswordHash = user.PasswordHash
	stored.Role = user.Role
	stored.Active = user.Active
	stored.UpdatedAt = now()
	user.UpdatedAt = stored.UpdatedAt
	r.s.db.state.users[user.ID] = stored
	return nil
}

func (r memoryUsers) Delete(_ context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.db.state.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.db.state.users, id)
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	defer r.s.lock()()
	user, ok := r.s.db.state.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	defer r.s.lock()()
	for _, user := range r.s.db.state.users {
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memoryUsers) List(_ context.Context, filter UserFilter) ([]domain.User, error) {
	defer r.s.lock()()
	var result []domain.User
	for _, user := range r.s.db.state.users {
		if filter.ProviderID != nil && !equalPtr(user.ProviderOrganizationID, *filter.ProviderID) {
			continue
		}
		if filter.ClientID != nil && !equalPtr(user.ClientOrganizationID, *filter.ClientID) {
			continue
		}
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, user.Role) {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	return paginate(result, limit, filter.Offset), nil
}

func (r memoryUsers) CountDependents(_ context.Context, id string) (domain.UserDependents, error) {
	defer r.s.lock()()
	var deps domain.UserDependents
	for _, ticket := range r.s.db.state.tickets {
		if ticket.CreatorID == id || ticket.CreatedByID == id {
			deps.CreatedTickets++
		}
		if equalPtr(ticket.AssignedToID, id) {
			deps.AssignedTickets++
		}
	}
	for _, entry := range r.s.db.state.history {
		if entry.AuthorUserID == id || equalPtr(entry.SnapshotAssignedToID, id) {
			deps.HistoryEntries++
		}
	}
	return deps, nil
}

type memoryTickets struct{ s *MemoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	defer r.s.lock()()
	for _, existing := range r.s.db.state.tickets {
		if existing.Folio == ticket.Folio {
			return uniqueViolation("tickets_folio_key")
		}
		if existing.Category == ticket.Category && existing.SequenceNumber == ticket.SequenceNumber {
			return uniqueViolation("tickets_category_sequence_key")
		}
	}
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now()
	ticket.UpdatedAt = ticket.CreatedAt
	ticket.Attachments = attachmentsOrEmpty(ticket.Attachments)
	r.s.db.state.tickets[ticket.ID] = *ticket
	return nil
}

func (r memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	defer r.s.lock()()
	stored, ok := r.s.db.state.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = ticket.Status
	stored.Priority = ticket.Priority
	stored.Category = ticket.Category
	stored.AssignedToID = ticket.AssignedToID
	stored.UpdatedAt = now()
	ticket.UpdatedAt = stored.UpdatedAt
	r.s.db.state.tickets[ticket.ID] = stored
	return nil
}

func (r memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	defer r.s.lock()()
	ticket, ok := r.s.db.state.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r memoryTickets) GetByFolio(_ context.Context, folio string) (*domain.Ticket, error) {
	defer r.s.lock()()
	for _, ticket := range r.s.db.state.tickets {
		if ticket.Folio == folio {
			return &ticket, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r memoryTickets) views(filter TicketFilter) []domain.TicketView {
	state := r.s.db.state
	var result []domain.TicketView
	for _, ticket := range state.tickets {
		view := domain.TicketView{Ticket: ticket}
		view.ClientName = state.clients[ticket.ClientOrganizationID].Name
		creator := state.users[ticket.CreatorID]
		view.CreatorName, view.CreatorEmail = creator.Name, creator.Email
		if ticket.AssignedToID != nil {
			if assignee, ok := state.users[*ticket.AssignedToID]; ok {
				name := assignee.Name
				view.AssignedToName = &name
			}
		}
		if matchesTicketFilter(view, filter) {
			result = append(result, view)
		}
	}
	return result
}

func (r memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.TicketView, error) {
	defer r.s.lock()()
	result := r.views(filter)

	field := filter.Sort.Field
	if _, ok := TicketSortColumns[field]; !ok {
		field = DefaultTicketSort.Field
	}
	sort.SliceStable(result, func(i, j int) bool {
		c := compareTicketViews(result[i], result[j], field)
		if c == 0 {
			return result[i].ID < result[j].ID
		}
		if filter.Sort.Desc {
			return c > 0
		}
		return c < 0
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	return paginate(result, limit, filter.Offset), nil
}

func (r memoryTickets) Count(_ context.Context, filter TicketFilter) (int64, error) {
	defer r.s.lock()()
	return int64(len(r.views(filter))), nil
}

func (r memoryTickets) CountByStatus(_ context.Context, scope TicketScope) (map[domain.TicketStatus]int64, error) {
	defer r.s.lock()()
	counts := make(map[domain.TicketStatus]int64, len(domain.TicketStatuses))
	for _, view := range r.views(TicketFilter{Scope: scope}) {
		counts[view.Status]++
	}
	return counts, nil
}

func matchesTicketFilter(view domain.TicketView, filter TicketFilter) bool {
	scope := filter.Scope
	if scope.ProviderID != nil && view.ProviderOrganizationID != *scope.ProviderID {
		return false
	}
	if scope.ClientID != nil && view.ClientOrganizationID != *scope.ClientID {
		return false
	}
	if scope.CreatorID != nil && view.CreatorID != *scope.CreatorID {
		return false
	}
	if filter.AssignedToID != nil && !equalPtr(view.AssignedToID, *filter.AssignedToID) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsValue(filter.Statuses, view.Status) {
		return false
	}
	if len(filter.Categories) > 0 && !containsValue(filter.Categories, view.Category) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsValue(filter.Priorities, view.Priority) {
		return false
	}
	if filter.TitleSearch != nil && !containsFold(view.Title, *filter.TitleSearch) {
		return false
	}
	if filter.ClientNameSearch != nil && !containsFold(view.ClientName, *filter.ClientNameSearch) {
		return false
	}
	return true
}

// compareTicketViews orders two views by field the way the SQL ORDER BY
// does: timestamps chronologically, names case-insensitively, NULL names first.
func compareTicketViews(a, b domain.TicketView, field string) int {
	switch field {
	case "folio":
		return strings.Compare(a.Folio, b.Folio)
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	case "category":
		return strings.Compare(string(a.Category), string(b.Category))
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "client.name":
		return strings.Compare(strings.ToLower(a.ClientName), strings.ToLower(b.ClientName))
	case "creator.name":
		return strings.Compare(strings.ToLower(a.CreatorName), strings.ToLower(b.CreatorName))
	case "creator.email":
		return strings.Compare(a.CreatorEmail, b.CreatorEmail)
	case "assigned_to.name":
		return strings.Compare(lowerOrEmpty(a.AssignedToName), lowerOrEmpty(b.AssignedToName))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func lowerOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(*s)
}

type memoryHistory struct{ s *MemoryStore }

func (r memoryHistory) Create(_ context.Context, entry *domain.TicketHistoryEntry) error {
	defer r.s.lock()()
	if _, ok := r.s.db.state.tickets[entry.TicketID]; !ok {
		return &pgconn.PgError{Code: "23503", ConstraintName: "ticket_history_ticket_id_fkey"}
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = now()
	entry.Attachments = attachmentsOrEmpty(entry.Attachments)
	r.s.db.state.history = append(r.s.db.state.history, *entry)
	return nil
}

func (r memoryHistory) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.TicketHistoryEntry, error) {
	defer r.s.lock()()
	var result []domain.TicketHistoryEntry
	for _, entry := range r.s.db.state.history {
		if entry.TicketID != ticketID {
			continue
		}
		if entry.IsInternal && !includeInternal {
			continue
		}
		result = append(result, entry)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type memorySequences struct{ s *MemoryStore }

func (r memorySequences) Next(_ context.Context, category domain.TicketCategory) (int64, error) {
	defer r.s.lock()()
	next, ok := r.s.db.state.sequences[category]
	if !ok {
		next = 1
	}
	r.s.db.state.sequences[category] = next + 1
	return next, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsValue[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsRole(roles []domain.Role, role domain.Role) bool {
	return containsValue(roles, role)
}

func equalPtr(ptr *string, v string) bool {
	return ptr != nil && *ptr == v
}
