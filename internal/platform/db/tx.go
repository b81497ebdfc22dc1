package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const txKey contextKey = "db_tx"

// Tx is the commit/rollback handle a workflow holds for the duration of one
// logical operation. Repositories never see it directly; they pick the
// transaction out of the context.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts a transaction and returns a derived context that carries
// it, so that repositories called with that context join the transaction.
type Beginner interface {
	Begin(ctx context.Context) (Tx, context.Context, error)
}

// PoolBeginner adapts a pgxpool.Pool to the Beginner interface.
type PoolBeginner struct {
	Pool *pgxpool.Pool
}

func NewPoolBeginner(pool *pgxpool.Pool) *PoolBeginner {
	return &PoolBeginner{Pool: pool}
}

func (b *PoolBeginner) Begin(ctx context.Context) (Tx, context.Context, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, ctx, err
	}
	return tx, context.WithValue(ctx, txKey, tx), nil
}

// TxFromContext retrieves the ambient transaction, or nil outside one.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey).(pgx.Tx)
	return tx
}
