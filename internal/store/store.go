package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the Postgres persistence adapter for schedules, services and appointments.
type Store struct {
	db DB
}

func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("store: pgx pool required")
	}
	return &Store{db: pool}
}

// NewWithDB allows injecting mocks for tests.
func NewWithDB(db DB) *Store {
	return &Store{db: db}
}
