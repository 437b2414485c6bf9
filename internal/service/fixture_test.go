package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/repository"
)

// fixture seeds one provider with staff, two client organizations with
// contacts, and a second provider that must stay invisible.
type fixture struct {
	ctx        context.Context
	store      *repository.MemoryStore
	dispatcher events.Dispatcher
	tickets    *TicketService
	clients    *ClientService
	users      *UserService

	provider *domain.ProviderOrganization
	acme     *domain.ClientOrganization
	globex   *domain.ClientOrganization

	admin *domain.Principal
	bob   *domain.Principal
	alice *domain.Principal
	jane  *domain.Principal
	john  *domain.Principal
	max   *domain.Principal

	otherProviderStaff *domain.Principal
	otherClient        *domain.ClientOrganization
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:        context.Background(),
		store:      repository.NewMemoryStore(),
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
	}
	f.tickets = NewTicketService(TicketDependencies{Store: f.store, Dispatcher: f.dispatcher})
	f.clients = NewClientService(ClientDependencies{Store: f.store})
	f.users = NewUserService(UserDependencies{Store: f.store, BcryptCost: 4})

	f.provider = f.newProvider(t, "Provider")
	f.acme = f.newClient(t, f.provider.ID, "Acme", true)
	f.globex = f.newClient(t, f.provider.ID, "Globex", true)

	f.admin = f.newStaff(t, f.provider.ID, "Ada Admin", "ada@provider.test", domain.RoleAdmin)
	f.bob = f.newStaff(t, f.provider.ID, "Bob", "bob@provider.test", domain.RoleSupport)
	f.alice = f.newStaff(t, f.provider.ID, "Alice", "alice@provider.test", domain.RoleDeveloper)
	f.jane = f.newContact(t, f.acme.ID, "Jane", "jane@acme.test")
	f.john = f.newContact(t, f.acme.ID, "John", "john@acme.test")
	f.max = f.newContact(t, f.globex.ID, "Max", "max@globex.test")

	other := f.newProvider(t, "Other Provider")
	f.otherClient = f.newClient(t, other.ID, "Initech", true)
	f.otherProviderStaff = f.newStaff(t, other.ID, "Olga", "olga@other.test", domain.RoleSupport)
	return f
}

func (f *fixture) newProvider(t *testing.T, name string) *domain.ProviderOrganization {
	t.Helper()
	p := &domain.ProviderOrganization{Name: name}
	require.NoError(t, f.store.Providers().Create(f.ctx, p))
	return p
}

func (f *fixture) newClient(t *testing.T, providerID, name string, active bool) *domain.ClientOrganization {
	t.Helper()
	c := &domain.ClientOrganization{Name: name, Active: active, ProviderOrganizationID: providerID}
	require.NoError(t, f.store.Clients().Create(f.ctx, c))
	return c
}

func (f *fixture) newStaff(t *testing.T, providerID, name, email string, role domain.Role) *domain.Principal {
	t.Helper()
	pid := providerID
	u := &domain.User{Name: name, Email: email, PasswordHash: "x", Role: role, Active: true, ProviderOrganizationID: &pid}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return domain.PrincipalFromUser(u)
}

func (f *fixture) newContact(t *testing.T, clientID, name, email string) *domain.Principal {
	t.Helper()
	cid := clientID
	u := &domain.User{Name: name, Email: email, PasswordHash: "x", Role: domain.RoleClientContact, Active: true, ClientOrganizationID: &cid}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return domain.PrincipalFromUser(u)
}

func (f *fixture) createTicket(t *testing.T, by *domain.Principal, clientID string, category domain.TicketCategory, title string) *domain.Ticket {
	t.Helper()
	input := TicketCreateInput{
		ClientOrganizationID: clientID,
		Title:                title,
		Description:          "<p>" + title + "</p>",
		Category:             category,
		Priority:             domain.TicketPriorityMedium,
	}
	if by.IsStaff() {
		requester := f.jane.ID
		if clientID == f.globex.ID {
			requester = f.max.ID
		}
		input.RequesterContactID = &requester
	}
	ticket, err := f.tickets.Create(f.ctx, by, input)
	require.NoError(t, err)
	return ticket
}

func ptr[T any](v T) *T {
	return &v
}

// recordingMailer captures messages and optionally fails every send.
type recordingMailer struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMailer) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}
