// Package postgres implements inventory.Store on PostgreSQL with pgx.
//
// Every transaction takes row locks on what it mutates: the item
// (SELECT ... FOR UPDATE), the owner user row before a ledger is created,
// the ledger row, and the code counter row, which is bumped with
// UPDATE ... RETURNING. Find-or-create of a user by identity holds a
// transaction-scoped advisory lock on that identity. Ledger membership lives
// in the ledger_items join table whose UNIQUE(item_kind, item_id) keeps an
// item in at most one ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"itam-api/internal/inventory"
)

// DefaultTimeout bounds every transaction so hung calls do not hold locks.
const DefaultTimeout = 10 * time.Second

// Open creates a pgx pool for dsn and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Store is the Postgres inventory.Store.
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

var _ inventory.Store = (*Store)(nil)

// New wraps pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, timeout: DefaultTimeout}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn in a read-committed transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func (s *Store) get(ctx context.Context, dst any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapErr(pgxscan.Get(ctx, s.pool, dst, query, args...))
}

func (s *Store) selectAll(ctx context.Context, dst any, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return mapErr(pgxscan.Select(ctx, s.pool, dst, query, args...))
}

// mapErr turns missing rows into inventory.ErrNotFound and unique
// violations into inventory.ErrConflict.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if pgxscan.NotFound(err) {
		return fmt.Errorf("%w: %w", inventory.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: already exists", inventory.ErrConflict)
	}
	return err
}
