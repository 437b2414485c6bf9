// Package bootstrap seeds a fresh installation with its first accounts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// SeedInput names the records created by Seed.
type SeedInput struct {
	ProviderName    string
	AdminName       string
	AdminEmail      string
	AdminPassword   string
	ClientName      string
	ContactName     string
	ContactEmail    string
	ContactPassword string
	BcryptCost      int
}

// SeedResult reports what Seed created.
type SeedResult struct {
	Provider *domain.ProviderOrganization
	Admin    *domain.User
	Client   *domain.ClientOrganization
	Contact  *domain.User
	Skipped  bool
}

// Seed creates a provider with one admin, and optionally a client organization
// with one contact, in a single transaction. It does nothing when the admin
// email is already registered.
func Seed(ctx context.Context, store repository.Store, in SeedInput) (*SeedResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	adminEmail := strings.ToLower(strings.TrimSpace(in.AdminEmail))
	if _, err := store.Users().GetByEmail(ctx, adminEmail); err == nil {
		return &SeedResult{Skipped: true}, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	result := &SeedResult{}
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		result.Provider = &domain.ProviderOrganization{Name: in.ProviderName}
		if err := tx.Providers().Create(ctx, result.Provider); err != nil {
			return fmt.Errorf("create provider: %w", err)
		}

		hash, err := auth.HashPassword(in.AdminPassword, in.BcryptCost)
		if err != nil {
			return err
		}
		result.Admin = &domain.User{
			Name:                   in.AdminName,
			Email:                  adminEmail,
			PasswordHash:           hash,
			Role:                   domain.RoleAdmin,
			Active:                 true,
			ProviderOrganizationID: &result.Provider.ID,
		}
		if err := tx.Users().Create(ctx, result.Admin); err != nil {
			return fmt.Errorf("create admin: %w", err)
		}

		if in.ClientName == "" {
			return nil
		}
		result.Client = &domain.ClientOrganization{Name: in.ClientName, Active: true, ProviderOrganizationID: result.Provider.ID}
		if err := tx.Clients().Create(ctx, result.Client); err != nil {
			return fmt.Errorf("create client organization: %w", err)
		}
		if in.ContactEmail == "" {
			return nil
		}
		hash, err = auth.HashPassword(in.ContactPassword, in.BcryptCost)
		if err != nil {
			return err
		}
		result.Contact = &domain.User{
			Name:                 in.ContactName,
			Email:                strings.ToLower(strings.TrimSpace(in.ContactEmail)),
			PasswordHash:         hash,
			Role:                 domain.RoleClientContact,
			Active:               true,
			ClientOrganizationID: &result.Client.ID,
		}
		if err := tx.Users().Create(ctx, result.Contact); err != nil {
			return fmt.Errorf("create contact: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (in SeedInput) validate() error {
	var missing []string
	if in.ProviderName == "" {
		missing = append(missing, "provider name")
	}
	if in.AdminName == "" {
		missing = append(missing, "admin name")
	}
	if in.AdminEmail == "" {
		missing = append(missing, "admin email")
	}
	if auth.CheckPasswordPolicy(in.AdminPassword) != nil {
		missing = append(missing, "admin password (8+ characters)")
	}
	if in.ContactEmail != "" {
		if in.ClientName == "" {
			missing = append(missing, "client name")
		}
		if in.ContactName == "" {
			missing = append(missing, "contact name")
		}
		if auth.CheckPasswordPolicy(in.ContactPassword) != nil {
			missing = append(missing, "contact password (8+ characters)")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("seed: missing %s", strings.Join(missing, ", "))
	}
	return nil
}
