package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ProviderRepository persists provider organizations.
type ProviderRepository interface {
	Create(ctx context.Context, provider *domain.ProviderOrganization) error
	GetByID(ctx context.Context, id string) (*domain.ProviderOrganization, error)
	List(ctx context.Context) ([]domain.ProviderOrganization, error)
}

type providerRepository struct {
	db DBTX
}

// NewProviderRepository instantiates the repository.
func NewProviderRepository(db DBTX) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, provider *domain.ProviderOrganization) error {
	const query = `
        INSERT INTO provider_organizations (name)
        VALUES ($1)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query, provider.Name).Scan(&provider.ID, &provider.CreatedAt)
}

func (r *providerRepository) GetByID(ctx context.Context, id string) (*domain.ProviderOrganization, error) {
	const query = `SELECT id, name, created_at FROM provider_organizations WHERE id=$1`
	var provider domain.ProviderOrganization
	if err := r.db.QueryRow(ctx, query, id).Scan(&provider.ID, &provider.Name, &provider.CreatedAt); err != nil {
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) List(ctx context.Context) ([]domain.ProviderOrganization, error) {
	const query = `SELECT id, name, created_at FROM provider_organizations ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProviderOrganization
	for rows.Next() {
		var provider domain.ProviderOrganization
		if err := rows.Scan(&provider.ID, &provider.Name, &provider.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, provider)
	}
	return result, rows.Err()
}
