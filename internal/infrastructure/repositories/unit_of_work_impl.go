package repositories

import (
	"context"
	"database/sql"
	"fmt"

	domainRepos "lightning-gateway/internal/domain/repositories"
)

type contextKey string

const (
	txKey   contextKey = "tx_db"
	lockKey contextKey = "lock"
)

// execer is satisfied by both *sql.DB and *sql.Tx, letting repository
// code run unchanged whether or not it's inside a unit of work.
type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// UnitOfWorkImpl implements UnitOfWork over database/sql.
type UnitOfWorkImpl struct {
	db *sql.DB
}

func NewUnitOfWork(db *sql.DB) domainRepos.UnitOfWork {
	return &UnitOfWorkImpl{db: db}
}

// Do executes fn inside a transaction, injecting the *sql.Tx into ctx
// so repository calls made with that ctx run against it.
func (u *UnitOfWorkImpl) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey, tx)

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// WithLock marks the context so the next GetByID-style read appends a
// row-level lock clause to its query.
func (u *UnitOfWorkImpl) WithLock(ctx context.Context) context.Context {
	return context.WithValue(ctx, lockKey, true)
}

// execFrom resolves the execer (tx or pooled db) for ctx, and reports
// whether the caller asked for a row lock on the next read.
func execFrom(ctx context.Context, fallback *sql.DB) (execer, bool) {
	var e execer = fallback
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		e = tx
	}
	locked, _ := ctx.Value(lockKey).(bool)
	return e, locked
}
