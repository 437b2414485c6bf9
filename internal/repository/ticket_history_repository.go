package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketHistoryRepository stores append-only audit entries. There is no
// update or delete path.
type TicketHistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketHistoryEntry) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketHistoryEntry, error)
}

type ticketHistoryRepository struct {
	db DBTX
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(db DBTX) TicketHistoryRepository {
	return &ticketHistoryRepository{db: db}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistoryEntry) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, author_user_id, snapshot_status, snapshot_priority, snapshot_category,
            snapshot_assigned_to_id, comment, attachments, is_internal)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.AuthorUserID,
		entry.SnapshotStatus,
		entry.SnapshotPriority,
		entry.SnapshotCategory,
		entry.SnapshotAssignedToID,
		entry.Comment,
		attachmentsOrEmpty(entry.Attachments),
		entry.IsInternal,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.TicketHistoryEntry, error) {
	query := `
        SELECT id, ticket_id, author_user_id, snapshot_status, snapshot_priority, snapshot_category,
               snapshot_assigned_to_id, comment, attachments, is_internal, created_at
        FROM ticket_history WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistoryEntry
	for rows.Next() {
		var entry domain.TicketHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.AuthorUserID,
			&entry.SnapshotStatus,
			&entry.SnapshotPriority,
			&entry.SnapshotCategory,
			&entry.SnapshotAssignedToID,
			&entry.Comment,
			&entry.Attachments,
			&entry.IsInternal,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
