package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

func seedInput() SeedInput {
	return SeedInput{
		ProviderName:    "IT Services",
		AdminName:       "Admin",
		AdminEmail:      "Admin@Provider.test",
		AdminPassword:   "password123",
		ClientName:      "Client Corp",
		ContactName:     "Contact",
		ContactEmail:    "contact@client.test",
		ContactPassword: "password123",
		BcryptCost:      4,
	}
}

func TestSeedCreatesBootstrapRecords(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()

	result, err := Seed(ctx, store, seedInput())
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "admin@provider.test", result.Admin.Email)
	assert.Equal(t, domain.RoleAdmin, result.Admin.Role)
	assert.Equal(t, result.Provider.ID, *result.Admin.ProviderOrganizationID)
	assert.Equal(t, result.Client.ID, *result.Contact.ClientOrganizationID)
	assert.NoError(t, auth.ComparePassword(result.Contact.PasswordHash, "password123"))

	again, err := Seed(ctx, store, seedInput())
	require.NoError(t, err)
	assert.True(t, again.Skipped)

	providers, err := store.Providers().List(ctx)
	require.NoError(t, err)
	assert.Len(t, providers, 1)
}

func TestSeedValidatesInput(t *testing.T) {
	in := seedInput()
	in.AdminPassword = "short"
	in.ClientName = ""
	_, err := Seed(context.Background(), repository.NewMemoryStore(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin password")
	assert.Contains(t, err.Error(), "client name")
}
