package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend keeps the document as a single jsonb row in alert_store.
// The pool must have the store_load and store_save statements prepared
// (see internal/db).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a backend on an existing pool.
func NewPostgresBackend(pool *pgxpool.Pool) *PostgresBackend {
	return &PostgresBackend{pool: pool}
}

func (b *PostgresBackend) Name() string { return "postgres" }

func (b *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var doc string
	err := b.pool.QueryRow(ctx, "store_load").Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func (b *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := b.pool.Exec(ctx, "store_save", string(data))
	return err
}
