package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ClientFilter narrows client organization listings.
type ClientFilter struct {
	ProviderID *string
	ID         *string
	Search     *string
	Active     *bool
	Limit      int
	Offset     int
}

// ClientRepository persists client organizations.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.ClientOrganization) error
	Update(ctx context.Context, client *domain.ClientOrganization) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.ClientOrganization, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.ClientOrganization, error)
	CountTickets(ctx context.Context, id string) (int64, error)
}

type clientRepository struct {
	db DBTX
}

// NewClientRepository instantiates the repository.
func NewClientRepository(db DBTX) ClientRepository {
	return &clientRepository{db: db}
}

const clientColumns = `id, provider_organization_id, name, active, created_at, updated_at`

func (r *clientRepository) Create(ctx context.Context, client *domain.ClientOrganization) error {
	const query = `
        INSERT INTO client_organizations (provider_organization_id, name, active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		client.ProviderOrganizationID,
		client.Name,
		client.Active,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.ClientOrganization) error {
	const query = `
        UPDATE client_organizations SET name=$1, active=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, client.Name, client.Active, client.ID).Scan(&client.UpdatedAt)
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM client_organizations WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.ClientOrganization, error) {
	query := `SELECT ` + clientColumns + ` FROM client_organizations WHERE id=$1`
	var client domain.ClientOrganization
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.ProviderOrganizationID,
		&client.Name,
		&client.Active,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]domain.ClientOrganization, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ProviderID != nil {
		args = append(args, *filter.ProviderID)
		clauses = append(clauses, fmt.Sprintf("provider_organization_id=$%d", len(args)))
	}
	if filter.ID != nil {
		args = append(args, *filter.ID)
		clauses = append(clauses, fmt.Sprintf("id=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("active=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.Search))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM client_organizations WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		clientColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ClientOrganization
	for rows.Next() {
		var client domain.ClientOrganization
		if err := rows.Scan(
			&client.ID,
			&client.ProviderOrganizationID,
			&client.Name,
			&client.Active,
			&client.CreatedAt,
			&client.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, client)
	}
	return result, rows.Err()
}

func (r *clientRepository) CountTickets(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE client_organization_id=$1`, id).Scan(&count)
	return count, err
}
