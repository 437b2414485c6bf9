package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func TestCreateByContact(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	assert.Equal(t, "S-000001", ticket.Folio)
	assert.Equal(t, int64(1), ticket.SequenceNumber)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, f.jane.ID, ticket.CreatorID)
	assert.Equal(t, f.jane.ID, ticket.CreatedByID)
	assert.Equal(t, f.provider.ID, ticket.ProviderOrganizationID)
	assert.Nil(t, ticket.AssignedToID)
}

func TestCreateByStaffOnBehalfOfContact(t *testing.T) {
	f := newFixture(t)

	ticket := f.createTicket(t, f.bob, f.acme.ID, domain.TicketCategoryDevelopment, "New report")

	assert.Equal(t, "D-000001", ticket.Folio)
	assert.Equal(t, f.jane.ID, ticket.CreatorID)
	assert.Equal(t, f.bob.ID, ticket.CreatedByID)
}

func TestCreateSanitizesDescription(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.tickets.Create(f.ctx, f.jane, TicketCreateInput{
		ClientOrganizationID: f.acme.ID,
		Title:                "XSS",
		Description:          `<p>hello</p><script>alert(1)</script>`,
		Category:             domain.TicketCategorySupport,
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", ticket.Description)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}

func TestCreateConcurrentFoliosAreUnique(t *testing.T) {
	f := newFixture(t)
	const n = 50

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		folios []string
		errs   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ticket, err := f.tickets.Create(f.ctx, f.jane, TicketCreateInput{
				ClientOrganizationID: f.acme.ID,
				Title:                fmt.Sprintf("ticket %d", i),
				Description:          "<p>concurrent</p>",
				Category:             domain.TicketCategorySupport,
				Priority:             domain.TicketPriorityLow,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			folios = append(folios, ticket.Folio)
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, folios, n)

	unique := map[string]struct{}{}
	for _, folio := range folios {
		unique[folio] = struct{}{}
	}
	assert.Len(t, unique, n)

	sort.Strings(folios)
	for i, folio := range folios {
		assert.Equal(t, fmt.Sprintf("S-%06d", i+1), folio)
	}
}

func TestCreateValidationAndAuthorization(t *testing.T) {
	f := newFixture(t)
	inactive := f.newClient(t, f.provider.ID, "Dormant", false)
	dormantContact := f.newContact(t, inactive.ID, "Dora", "dora@dormant.test")

	base := func() TicketCreateInput {
		return TicketCreateInput{
			ClientOrganizationID: f.acme.ID,
			Title:                "Title",
			Description:          "<p>desc</p>",
			Category:             domain.TicketCategorySupport,
			Priority:             domain.TicketPriorityHigh,
		}
	}

	tests := []struct {
		name      string
		principal *domain.Principal
		mutate    func(*TicketCreateInput)
		code      string
	}{
		{"missing title", f.jane, func(in *TicketCreateInput) { in.Title = "  " }, apperrors.CodeValidation},
		{"blank rich text", f.jane, func(in *TicketCreateInput) { in.Description = "<p></p>" }, apperrors.CodeValidation},
		{"unknown category", f.jane, func(in *TicketCreateInput) { in.Category = "HARDWARE" }, apperrors.CodeValidation},
		{"unknown priority", f.jane, func(in *TicketCreateInput) { in.Priority = "CRITICAL" }, apperrors.CodeValidation},
		{"attachment without url", f.jane, func(in *TicketCreateInput) { in.Attachments = []domain.Attachment{{Name: "a.png"}} }, apperrors.CodeValidation},
		{"contact for other org", f.jane, func(in *TicketCreateInput) { in.ClientOrganizationID = f.globex.ID }, apperrors.CodeForbidden},
		{"contact for other requester", f.jane, func(in *TicketCreateInput) { in.RequesterContactID = ptr(f.john.ID) }, apperrors.CodeForbidden},
		{"staff without requester", f.bob, func(in *TicketCreateInput) {}, apperrors.CodeValidation},
		{"staff with requester of other org", f.bob, func(in *TicketCreateInput) { in.RequesterContactID = ptr(f.max.ID) }, apperrors.CodeValidation},
		{"staff with staff requester", f.bob, func(in *TicketCreateInput) { in.RequesterContactID = ptr(f.alice.ID) }, apperrors.CodeValidation},
		{"unknown client", f.bob, func(in *TicketCreateInput) {
			in.ClientOrganizationID = "00000000-0000-0000-0000-000000000000"
			in.RequesterContactID = ptr(f.jane.ID)
		}, apperrors.CodeNotFound},
		{"client of another provider", f.bob, func(in *TicketCreateInput) {
			in.ClientOrganizationID = f.otherClient.ID
			in.RequesterContactID = ptr(f.jane.ID)
		}, apperrors.CodeNotFound},
		{"inactive client", dormantContact, func(in *TicketCreateInput) { in.ClientOrganizationID = inactive.ID }, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base()
			tt.mutate(&input)
			_, err := f.tickets.Create(f.ctx, tt.principal, input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	// Failed creations must not consume folios.
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "After failures")
	assert.Equal(t, "S-000001", ticket.Folio)
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string) (bool, error) { return false, nil }

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, fmt.Errorf("redis down")
}

func TestCreateRateLimited(t *testing.T) {
	f := newFixture(t)
	input := TicketCreateInput{
		ClientOrganizationID: f.acme.ID,
		Title:                "Spam",
		Description:          "<p>spam</p>",
		Category:             domain.TicketCategorySales,
	}

	limited := NewTicketService(TicketDependencies{Store: f.store, Limiter: denyLimiter{}})
	_, err := limited.Create(f.ctx, f.jane, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))

	failOpen := NewTicketService(TicketDependencies{Store: f.store, Limiter: brokenLimiter{}})
	ticket, err := failOpen.Create(f.ctx, f.jane, input)
	require.NoError(t, err)
	assert.Equal(t, "V-000001", ticket.Folio)
}

func TestQuickStatusMoveEscalationRequiresAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	_, err := f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusEscalated, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusEscalated, ptr(""))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusEscalated, ptr(f.jane.ID))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "contacts cannot be assignees")

	_, err = f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusEscalated, ptr(f.otherProviderStaff.ID))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "staff of other providers cannot be assignees")

	result, err := f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusEscalated, ptr(f.alice.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, result.Ticket.Status)
	require.NotNil(t, result.Ticket.AssignedToID)
	assert.Equal(t, f.alice.ID, *result.Ticket.AssignedToID)
	require.NotNil(t, result.Entry)
	assert.True(t, result.Entry.IsInternal)
	assert.Equal(t, domain.TicketStatusEscalated, result.Entry.SnapshotStatus)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, stored.Status)
	assert.Equal(t, f.alice.ID, *stored.AssignedToID)
}

func (f *fixture) deactivate(t *testing.T, p *domain.Principal) {
	t.Helper()
	u, err := f.store.Users().GetByID(f.ctx, p.ID)
	require.NoError(t, err)
	u.Active = false
	require.NoError(t, f.store.Users().Update(f.ctx, u))
}

func TestEscalationRechecksUnchangedAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	_, err := f.tickets.QuickStatusMove(f.ctx, f.admin, ticket.ID, domain.TicketStatusInProgress, ptr(f.bob.ID))
	require.NoError(t, err)
	f.deactivate(t, f.bob)

	_, err = f.tickets.QuickStatusMove(f.ctx, f.admin, ticket.ID, domain.TicketStatusEscalated, ptr(f.bob.ID))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.FullManagementUpdate(f.ctx, f.admin, ticket.ID, ManagementUpdateInput{
		Status:  ptr(domain.TicketStatusEscalated),
		Comment: "escalating with the current assignee",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.FullManagementUpdate(f.ctx, f.admin, ticket.ID, ManagementUpdateInput{
		AssignedToID: ptr(f.bob.ID),
		Comment:      "keeping bob",
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)

	// A contact comment does not re-validate the assignee.
	_, err = f.tickets.FullManagementUpdate(f.ctx, f.jane, ticket.ID, ManagementUpdateInput{Comment: "any news?"})
	require.NoError(t, err)

	result, err := f.tickets.QuickStatusMove(f.ctx, f.admin, ticket.ID, domain.TicketStatusEscalated, ptr(f.alice.ID))
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, *result.Ticket.AssignedToID)
}

func TestQuickStatusMoveRules(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	_, err := f.tickets.QuickStatusMove(f.ctx, f.jane, ticket.ID, domain.TicketStatusInProgress, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, "DONE", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.QuickStatusMove(f.ctx, f.otherProviderStaff, ticket.ID, domain.TicketStatusInProgress, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	result, err := f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusPending, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Entry, "moving to the current status is a no-op")

	_, err = f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusInProgress, nil)
	require.NoError(t, err)

	history, err := f.store.History().ListByTicket(f.ctx, ticket.ID, true)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsInternal)
	assert.Nil(t, history[0].SnapshotAssignedToID)
}

func TestTerminalTicketsRejectMutation(t *testing.T) {
	for _, terminal := range []domain.TicketStatus{domain.TicketStatusClosed, domain.TicketStatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newFixture(t)
			ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

			_, err := f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{Status: ptr(terminal), Comment: "done"})
			require.NoError(t, err)

			_, err = f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{Status: ptr(domain.TicketStatusInProgress), Comment: "reopen"})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

			_, err = f.tickets.FullManagementUpdate(f.ctx, f.jane, ticket.ID, ManagementUpdateInput{Comment: "still broken"})
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

			_, err = f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.ID, domain.TicketStatusInProgress, nil)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

			stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, terminal, stored.Status)

			history, err := f.store.History().ListByTicket(f.ctx, ticket.ID, true)
			require.NoError(t, err)
			assert.Len(t, history, 1)
		})
	}
}

func TestFullManagementUpdateByStaff(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	result, err := f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{
		Status:       ptr(domain.TicketStatusInProgress),
		Priority:     ptr(domain.TicketPriorityUrgent),
		Category:     ptr(domain.TicketCategoryDevelopment),
		AssignedToID: ptr(f.alice.ID),
		Comment:      "<p>Looking into it</p>",
		Attachments:  []domain.Attachment{{URL: "https://files.test/log.txt", Name: "log.txt"}},
		IsInternal:   true,
	})
	require.NoError(t, err)

	entry := result.Entry
	assert.Equal(t, domain.TicketStatusInProgress, entry.SnapshotStatus)
	require.NotNil(t, entry.SnapshotPriority)
	assert.Equal(t, domain.TicketPriorityUrgent, *entry.SnapshotPriority)
	require.NotNil(t, entry.SnapshotCategory)
	assert.Equal(t, domain.TicketCategoryDevelopment, *entry.SnapshotCategory)
	require.NotNil(t, entry.SnapshotAssignedToID)
	assert.Equal(t, f.alice.ID, *entry.SnapshotAssignedToID)
	assert.True(t, entry.IsInternal)
	require.NotNil(t, entry.Comment)
	assert.Equal(t, "<p>Looking into it</p>", *entry.Comment)
	assert.Len(t, entry.Attachments, 1)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, stored.Priority)
	assert.Equal(t, domain.TicketCategoryDevelopment, stored.Category)
	assert.Equal(t, "S-000001", stored.Folio, "folio is fixed at creation")

	// Unchanged fields are not repeated in the snapshot; clearing the assignee works.
	result, err = f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{
		Priority:     ptr(domain.TicketPriorityUrgent),
		AssignedToID: ptr(""),
		Comment:      "unassigning",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Entry.SnapshotPriority)
	assert.Nil(t, result.Entry.SnapshotAssignedToID)
	assert.Nil(t, result.Ticket.AssignedToID)
}

func TestFullManagementUpdateEscalationNeedsAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	_, err := f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{Status: ptr(domain.TicketStatusEscalated), Comment: "escalate"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{
		Status:       ptr(domain.TicketStatusEscalated),
		AssignedToID: ptr(f.alice.ID),
	})
	require.NoError(t, err)
}

func TestFullManagementUpdateRequiresContent(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	_, err := f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{Comment: "<p> </p>"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.FullManagementUpdate(f.ctx, f.jane, ticket.ID, ManagementUpdateInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestContactUpdateCannotChangeClassification(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	result, err := f.tickets.FullManagementUpdate(f.ctx, f.jane, ticket.ID, ManagementUpdateInput{
		Status:       ptr(domain.TicketStatusClosed),
		Priority:     ptr(domain.TicketPriorityUrgent),
		Category:     ptr(domain.TicketCategorySales),
		AssignedToID: ptr(f.alice.ID),
		Comment:      "<p>Any news?</p>",
		IsInternal:   true,
	})
	require.NoError(t, err)

	assert.False(t, result.Entry.IsInternal)
	assert.Equal(t, domain.TicketStatusPending, result.Entry.SnapshotStatus)
	assert.Nil(t, result.Entry.SnapshotPriority)
	assert.Nil(t, result.Entry.SnapshotCategory)
	assert.Nil(t, result.Entry.SnapshotAssignedToID)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)
	assert.Equal(t, domain.TicketPriorityMedium, stored.Priority)
	assert.Equal(t, domain.TicketCategorySupport, stored.Category)
	assert.Nil(t, stored.AssignedToID)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	var snapshots [][]domain.TicketHistoryEntry
	const n = 5
	for i := 0; i < n; i++ {
		_, err := f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{
			Comment:    fmt.Sprintf("<p>update %d</p>", i),
			IsInternal: i%2 == 0,
		})
		require.NoError(t, err)

		history, err := f.store.History().ListByTicket(f.ctx, ticket.ID, true)
		require.NoError(t, err)
		snapshots = append(snapshots, history)
	}

	final := snapshots[n-1]
	require.Len(t, final, n)
	for i := 1; i < n; i++ {
		assert.False(t, final[i].CreatedAt.Before(final[i-1].CreatedAt))
		assert.Equal(t, fmt.Sprintf("<p>update %d</p>", i), *final[i].Comment)
	}
	for i, snapshot := range snapshots {
		assert.Equal(t, snapshot, final[:i+1], "entries written before update %d changed", i)
	}
}

func TestVisibilityIsolation(t *testing.T) {
	f := newFixture(t)
	acmeTicket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Acme issue")
	f.createTicket(t, f.bob, f.acme.ID, domain.TicketCategorySales, "Acme quote")
	globexTicket := f.createTicket(t, f.max, f.globex.ID, domain.TicketCategorySupport, "Globex issue")

	queries := []TicketQuery{
		{},
		{TitleSearch: "Acme"},
		{ClientNameSearch: "Acme"},
		{Statuses: []domain.TicketStatus{domain.TicketStatusPending}},
		{SortField: "client.name"},
		{PageSize: 100},
	}
	for _, q := range queries {
		page, err := f.tickets.List(f.ctx, f.max, q)
		require.NoError(t, err)
		for _, item := range page.Items {
			assert.Equal(t, f.globex.ID, item.ClientOrganizationID)
		}
	}

	_, err := f.tickets.List(f.ctx, f.max, TicketQuery{ClientID: f.acme.ID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.tickets.Get(f.ctx, f.max, acmeTicket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.tickets.Get(f.ctx, f.otherProviderStaff, globexTicket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	page, err := f.tickets.List(f.ctx, f.otherProviderStaff, TicketQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
}

func TestContactOwnAndOrganizationViews(t *testing.T) {
	f := newFixture(t)
	f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Jane 1")
	f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Jane 2")
	johnTicket := f.createTicket(t, f.john, f.acme.ID, domain.TicketCategorySupport, "John 1")

	own, err := f.tickets.List(f.ctx, f.john, TicketQuery{})
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.Equal(t, johnTicket.ID, own.Items[0].ID)

	org, err := f.tickets.List(f.ctx, f.john, TicketQuery{ClientID: f.acme.ID})
	require.NoError(t, err)
	assert.Len(t, org.Items, 3)
	assert.Equal(t, int64(3), org.StatusCounts[domain.TicketStatusPending])

	// A colleague's ticket in the same organization is readable.
	detail, err := f.tickets.Get(f.ctx, f.john, org.Items[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", detail.ClientName)
}

func TestGetAcceptsFolio(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategoryDevelopment, "Export fails")

	detail, err := f.tickets.Get(f.ctx, f.bob, ticket.Folio)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, detail.Ticket.ID)

	_, err = f.tickets.Get(f.ctx, f.max, ticket.Folio)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.tickets.Get(f.ctx, f.bob, "D-000099")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	result, err := f.tickets.QuickStatusMove(f.ctx, f.bob, ticket.Folio, domain.TicketStatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, result.Ticket.ID)
}

func TestGetHidesInternalEntriesFromContacts(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	_, err := f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{Comment: "internal", IsInternal: true})
	require.NoError(t, err)
	_, err = f.tickets.FullManagementUpdate(f.ctx, f.bob, ticket.ID, ManagementUpdateInput{Comment: "public"})
	require.NoError(t, err)

	staffView, err := f.tickets.Get(f.ctx, f.bob, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, staffView.History, 2)
	assert.Equal(t, "Bob", staffView.History[0].AuthorName)
	assert.Equal(t, "Jane", staffView.CreatorName)
	assert.Equal(t, "jane@acme.test", staffView.CreatorEmail)

	contactView, err := f.tickets.Get(f.ctx, f.jane, ticket.ID)
	require.NoError(t, err)
	require.Len(t, contactView.History, 1)
	assert.False(t, contactView.History[0].IsInternal)
}

func TestListPaginationSortingAndCounts(t *testing.T) {
	f := newFixture(t)
	titles := []string{"delta", "alpha", "charlie", "bravo", "echo", "foxtrot", "golf", "hotel", "india", "juliet", "kilo", "lima"}
	var ids []string
	for _, title := range titles {
		ids = append(ids, f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, title).ID)
	}
	_, err := f.tickets.QuickStatusMove(f.ctx, f.bob, ids[0], domain.TicketStatusInProgress, nil)
	require.NoError(t, err)

	page, err := f.tickets.List(f.ctx, f.bob, TicketQuery{})
	require.NoError(t, err)
	assert.Len(t, page.Items, defaultPageSize)
	assert.Equal(t, int64(12), page.Total)
	assert.Equal(t, int64(11), page.StatusCounts[domain.TicketStatusPending])
	assert.Equal(t, int64(1), page.StatusCounts[domain.TicketStatusInProgress])

	page, err = f.tickets.List(f.ctx, f.bob, TicketQuery{SortField: "title", Page: 1, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, []string{page.Items[0].Title, page.Items[1].Title, page.Items[2].Title})

	page, err = f.tickets.List(f.ctx, f.bob, TicketQuery{SortField: "title", SortDesc: true, Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Equal(t, "golf", page.Items[0].Title)

	page, err = f.tickets.List(f.ctx, f.bob, TicketQuery{Statuses: []domain.TicketStatus{domain.TicketStatusInProgress}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "delta", page.Items[0].Title)
	assert.Equal(t, int64(12), page.StatusCounts[domain.TicketStatusPending]+page.StatusCounts[domain.TicketStatusInProgress], "counts cover the scope, not the filter")

	_, err = f.tickets.List(f.ctx, f.bob, TicketQuery{SortField: "password_hash"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestBoardGroupsByStatus(t *testing.T) {
	f := newFixture(t)
	first := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "one")
	f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "two")
	_, err := f.tickets.QuickStatusMove(f.ctx, f.bob, first.ID, domain.TicketStatusResolved, nil)
	require.NoError(t, err)

	board, err := f.tickets.Board(f.ctx, f.bob, TicketQuery{})
	require.NoError(t, err)
	assert.Len(t, board, len(domain.TicketStatuses))
	assert.Len(t, board[domain.TicketStatusPending], 1)
	assert.Len(t, board[domain.TicketStatusResolved], 1)
	assert.Empty(t, board[domain.TicketStatusClosed])
}

func TestAssignableStaff(t *testing.T) {
	f := newFixture(t)
	retired := f.newStaff(t, f.provider.ID, "Retired", "retired@provider.test", domain.RoleSupport)
	stored, err := f.store.Users().GetByID(f.ctx, retired.ID)
	require.NoError(t, err)
	stored.Active = false
	require.NoError(t, f.store.Users().Update(f.ctx, stored))

	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	staff, err := f.tickets.AssignableStaff(f.ctx, f.bob, ticket.ID)
	require.NoError(t, err)
	var names []string
	for _, u := range staff {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{"Ada Admin", "Alice", "Bob"}, names)

	_, err = f.tickets.AssignableStaff(f.ctx, f.jane, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestEndToEndLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := f.ctx

	acme, err := f.clients.Create(ctx, f.admin, "Acme Corp")
	require.NoError(t, err)
	assert.True(t, acme.Active)

	jane, err := f.users.CreateContact(ctx, f.bob, acme.ID, UserInput{Name: "Jane Doe", Email: "jane.doe@acme.test", Password: "password123"})
	require.NoError(t, err)
	janePrincipal := domain.PrincipalFromUser(jane)

	ticket, err := f.tickets.Create(ctx, janePrincipal, TicketCreateInput{
		ClientOrganizationID: acme.ID,
		Title:                "Printer down",
		Description:          "<p>The printer on floor 2 is down</p>",
		Category:             domain.TicketCategorySupport,
		Priority:             domain.TicketPriorityMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, "S-000001", ticket.Folio)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, jane.ID, ticket.CreatorID)

	escalated, err := f.tickets.QuickStatusMove(ctx, f.bob, ticket.ID, domain.TicketStatusEscalated, ptr(f.alice.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusEscalated, escalated.Ticket.Status)
	assert.Equal(t, f.alice.ID, *escalated.Ticket.AssignedToID)
	assert.True(t, escalated.Entry.IsInternal)

	resolved, err := f.tickets.FullManagementUpdate(ctx, f.alice, ticket.ID, ManagementUpdateInput{
		Status:  ptr(domain.TicketStatusResolved),
		Comment: "<p>Replaced the toner</p>",
		Notify:  true,
	})
	require.NoError(t, err)
	assert.False(t, resolved.Entry.IsInternal)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Ticket.Status)

	history, err := f.store.History().ListByTicket(ctx, ticket.ID, true)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	_, err = f.tickets.FullManagementUpdate(ctx, f.bob, ticket.ID, ManagementUpdateInput{Status: ptr(domain.TicketStatusClosed)})
	require.NoError(t, err)

	_, err = f.tickets.FullManagementUpdate(ctx, f.bob, ticket.ID, ManagementUpdateInput{Status: ptr(domain.TicketStatusInProgress), Comment: "reopen"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}
