package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketScope is the visibility predicate computed for a principal. All set
// fields must match; a nil field does not restrict.
type TicketScope struct {
	ProviderID *string
	ClientID   *string
	CreatorID  *string
}

// TicketSort selects an allow-listed ordering key.
type TicketSort struct {
	Field string
	Desc  bool
}

// TicketSortColumns maps public sort keys, top-level or relation.field, to SQL.
var TicketSortColumns = map[string]string{
	"folio":            "t.folio",
	"title":            "t.title",
	"status":           "t.status",
	"priority":         "t.priority",
	"category":         "t.category",
	"created_at":       "t.created_at",
	"updated_at":       "t.updated_at",
	"client.name":      "c.name",
	"creator.name":     "cr.name",
	"creator.email":    "cr.email",
	"assigned_to.name": "a.name",
}

// DefaultTicketSort orders newest first.
var DefaultTicketSort = TicketSort{Field: "created_at", Desc: true}

// TicketFilter captures list parameters.
type TicketFilter struct {
	Scope            TicketScope
	Statuses         []domain.TicketStatus
	Categories       []domain.TicketCategory
	Priorities       []domain.TicketPriority
	AssignedToID     *string
	TitleSearch      *string
	ClientNameSearch *string
	Sort             TicketSort
	Limit            int
	Offset           int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByFolio(ctx context.Context, folio string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error)
	Count(ctx context.Context, filter TicketFilter) (int64, error)
	CountByStatus(ctx context.Context, scope TicketScope) (map[domain.TicketStatus]int64, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `t.id, t.folio, t.sequence_number, t.title, t.description, t.category, t.priority, t.status,
               t.creator_id, t.created_by_id, t.client_organization_id, t.provider_organization_id,
               t.assigned_to_id, t.attachments, t.created_at, t.updated_at`

const ticketJoins = `
             JOIN client_organizations c ON c.id = t.client_organization_id
             JOIN users cr ON cr.id = t.creator_id
             LEFT JOIN users a ON a.id = t.assigned_to_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (folio, sequence_number, title, description, category, priority, status,
            creator_id, created_by_id, client_organization_id, provider_organization_id, assigned_to_id, attachments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Folio,
		ticket.SequenceNumber,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.CreatorID,
		ticket.CreatedByID,
		ticket.ClientOrganizationID,
		ticket.ProviderOrganizationID,
		ticket.AssignedToID,
		attachmentsOrEmpty(ticket.Attachments),
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update writes the management-owned columns only.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, category=$3, assigned_to_id=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.AssignedToID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.id=$1`, id)
}

func (r *ticketRepository) GetByFolio(ctx context.Context, folio string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.folio=$1`, folio)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx, query, arg).Scan(ticketScanTargets(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketView, error) {
	where, args := buildTicketWhere(filter)

	column, ok := TicketSortColumns[filter.Sort.Field]
	if !ok {
		column = TicketSortColumns[DefaultTicketSort.Field]
	}
	direction := "ASC"
	if filter.Sort.Desc {
		direction = "DESC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s, c.name, cr.name, cr.email, a.name FROM tickets t %s WHERE %s ORDER BY %s %s, t.id ASC LIMIT %d OFFSET %d`,
		ticketColumns, ticketJoins, where, column, direction, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketView
	for rows.Next() {
		var view domain.TicketView
		targets := append(ticketScanTargets(&view.Ticket), &view.ClientName, &view.CreatorName, &view.CreatorEmail, &view.AssignedToName)
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int64, error) {
	where, args := buildTicketWhere(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM tickets t %s WHERE %s`, ticketJoins, where)
	var count int64
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *ticketRepository) CountByStatus(ctx context.Context, scope TicketScope) (map[domain.TicketStatus]int64, error) {
	where, args := buildTicketWhere(TicketFilter{Scope: scope})
	query := fmt.Sprintf(`SELECT t.status, COUNT(*) FROM tickets t WHERE %s GROUP BY t.status`, where)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int64, len(domain.TicketStatuses))
	for rows.Next() {
		var status domain.TicketStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func buildTicketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Scope.ProviderID != nil {
		args = append(args, *filter.Scope.ProviderID)
		clauses = append(clauses, fmt.Sprintf("t.provider_organization_id=$%d", len(args)))
	}
	if filter.Scope.ClientID != nil {
		args = append(args, *filter.Scope.ClientID)
		clauses = append(clauses, fmt.Sprintf("t.client_organization_id=$%d", len(args)))
	}
	if filter.Scope.CreatorID != nil {
		args = append(args, *filter.Scope.CreatorID)
		clauses = append(clauses, fmt.Sprintf("t.creator_id=$%d", len(args)))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TitleSearch != nil && strings.TrimSpace(*filter.TitleSearch) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.TitleSearch))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(t.title) LIKE $%d", len(args)))
	}
	if filter.ClientNameSearch != nil && strings.TrimSpace(*filter.ClientNameSearch) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.ClientNameSearch))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(c.name) LIKE $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func ticketScanTargets(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.Folio,
		&ticket.SequenceNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.CreatedByID,
		&ticket.ClientOrganizationID,
		&ticket.ProviderOrganizationID,
		&ticket.AssignedToID,
		&ticket.Attachments,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
}

func attachmentsOrEmpty(attachments []domain.Attachment) []domain.Attachment {
	if attachments == nil {
		return []domain.Attachment{}
	}
	return attachments
}
