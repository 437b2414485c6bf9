package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// SequenceRepository issues per-category ticket sequence numbers.
type SequenceRepository interface {
	// Next returns the next sequence number for category, creating the counter
	// row on first use. Callers run it inside the ticket insert transaction.
	Next(ctx context.Context, category domain.TicketCategory) (int64, error)
}

type sequenceRepository struct {
	db DBTX
}

// NewSequenceRepository instantiates the repository.
func NewSequenceRepository(db DBTX) SequenceRepository {
	return &sequenceRepository{db: db}
}

// The upsert takes the row lock for the rest of the transaction, so concurrent
// creators of the same category queue behind it and never read the same value.
func (r *sequenceRepository) Next(ctx context.Context, category domain.TicketCategory) (int64, error) {
	const query = `
        INSERT INTO category_sequences (category, next_value)
        VALUES ($1, 2)
        ON CONFLICT (category) DO UPDATE SET next_value = category_sequences.next_value + 1
        RETURNING next_value - 1`
	var issued int64
	if err := r.db.QueryRow(ctx, query, category).Scan(&issued); err != nil {
		return 0, err
	}
	return issued, nil
}
