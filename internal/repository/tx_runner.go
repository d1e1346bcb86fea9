package repository

import (
	"context"
	"fmt"

	"github.com/florianreyes/shipba-rag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner runs profile writes and their chunk replacement atomically.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// WithTx commits when fn returns nil and rolls back on error or panic.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(txRepos{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepos struct {
	tx pgx.Tx
}

func (r txRepos) Profiles() service.ProfileRepositoryInterface {
	return NewProfileRepositoryWithTx(r.tx)
}

func (r txRepos) Chunks() service.ProfileChunkRepositoryInterface {
	return NewProfileChunkRepositoryWithTx(r.tx)
}
