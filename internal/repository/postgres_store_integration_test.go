//go:build integration

package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/persistence"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	_, err = pool.Exec(ctx, `DELETE FROM category_sequences`)
	require.NoError(t, err)
	return pool
}

func TestPostgresConcurrentSequences(t *testing.T) {
	pool := integrationPool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	const n = 50

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(tx Store) error {
				v, err := tx.Sequences().Next(ctx, domain.TicketCategorySupport)
				if err != nil {
					return err
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
				return nil
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}
