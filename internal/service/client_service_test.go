package service

import (
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func TestClientCreateAndList(t *testing.T) {
	f := newFixture(t)

	_, err := f.clients.Create(f.ctx, f.jane, "Nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.clients.Create(f.ctx, f.bob, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	created, err := f.clients.Create(f.ctx, f.bob, "Umbrella")
	require.NoError(t, err)
	assert.Equal(t, f.provider.ID, created.ProviderOrganizationID)

	all, err := f.clients.List(f.ctx, f.bob, ClientQuery{})
	require.NoError(t, err)
	var names []string
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Acme", "Globex", "Umbrella"}, names)

	own, err := f.clients.List(f.ctx, f.jane, ClientQuery{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, f.acme.ID, own[0].ID)
}

func TestClientVisibility(t *testing.T) {
	f := newFixture(t)

	_, err := f.clients.Get(f.ctx, f.jane, f.globex.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, err = f.clients.Get(f.ctx, f.bob, f.otherClient.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	client, err := f.clients.Get(f.ctx, f.jane, f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", client.Name)
}

func TestClientUpdate(t *testing.T) {
	f := newFixture(t)

	updated, err := f.clients.Update(f.ctx, f.bob, f.acme.ID, ClientUpdateInput{Name: ptr("Acme Inc"), Active: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", updated.Name)
	assert.False(t, updated.Active)

	_, err = f.clients.Update(f.ctx, f.jane, f.acme.ID, ClientUpdateInput{Name: ptr("Mine")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestClientDeleteWithoutTicketsRemovesRow(t *testing.T) {
	f := newFixture(t)
	empty := f.newClient(t, f.provider.ID, "Empty", true)
	contact := f.newContact(t, empty.ID, "Eve", "eve@empty.test")

	_, err := f.clients.Delete(f.ctx, f.bob, empty.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "only admins delete organizations")

	outcome, err := f.clients.Delete(f.ctx, f.admin, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeletionOutcomeDeleted, outcome)

	_, err = f.store.Clients().GetByID(f.ctx, empty.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	_, err = f.store.Users().GetByID(f.ctx, contact.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestClientDeleteWithTicketsDeactivates(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, f.jane, f.acme.ID, domain.TicketCategorySupport, "Printer down")

	outcome, err := f.clients.Delete(f.ctx, f.admin, f.acme.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DeletionOutcomeDeactivated, outcome)

	client, err := f.store.Clients().GetByID(f.ctx, f.acme.ID)
	require.NoError(t, err)
	assert.False(t, client.Active)

	_, err = f.store.Tickets().GetByID(f.ctx, ticket.ID)
	assert.NoError(t, err, "tickets survive a soft delete")

	_, err = f.tickets.Create(f.ctx, f.jane, TicketCreateInput{
		ClientOrganizationID: f.acme.ID,
		Title:                "Another",
		Description:          "<p>x</p>",
		Category:             domain.TicketCategorySupport,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "inactive organizations take no new tickets")
}
