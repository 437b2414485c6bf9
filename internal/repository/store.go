package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories and runs them inside one transaction when asked.
type Store interface {
	Providers() ProviderRepository
	Clients() ClientRepository
	Users() UserRepository
	Tickets() TicketRepository
	History() TicketHistoryRepository
	Sequences() SequenceRepository
	// WithinTx runs fn against a transaction-bound Store. Any error rolls back
	// every write made through tx.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	db    DBTX
	begin txBeginner
}

// NewPostgresStore builds a Store backed by the pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{db: pool, begin: pool}
}

func (s *pgStore) Providers() ProviderRepository    { return NewProviderRepository(s.db) }
func (s *pgStore) Clients() ClientRepository        { return NewClientRepository(s.db) }
func (s *pgStore) Users() UserRepository            { return NewUserRepository(s.db) }
func (s *pgStore) Tickets() TicketRepository        { return NewTicketRepository(s.db) }
func (s *pgStore) History() TicketHistoryRepository { return NewTicketHistoryRepository(s.db) }
func (s *pgStore) Sequences() SequenceRepository    { return NewSequenceRepository(s.db) }

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return pgx.BeginFunc(ctx, s.begin, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx, begin: tx})
	})
}
