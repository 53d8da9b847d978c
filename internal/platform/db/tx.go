package db

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const DBTxKey contextKey = "db_tx"

// SnapshotOptions gives every statement in the transaction the same view of
// the database and refuses writes.
var SnapshotOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxFromContext retrieves the transaction attached by RunInSnapshot or
// SnapshotMiddleware, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ContextWithTx attaches tx to ctx.
func ContextWithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, DBTxKey, tx)
}

// RunInSnapshot runs fn inside a read-only repeatable-read transaction. A
// transaction already present in ctx is reused. The transaction is committed
// only when fn succeeds.
func RunInSnapshot(ctx context.Context, b TxBeginner, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	if b == nil {
		return fmt.Errorf("no database connection")
	}

	tx, err := b.BeginTx(ctx, SnapshotOptions)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// SnapshotMiddleware gives each request its own snapshot transaction so that a
// generated document reflects a single consistent chart.
func SnapshotMiddleware(b TxBeginner) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			tx, err := b.BeginTx(ctx, SnapshotOptions)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			defer tx.Rollback(ctx)

			c.SetRequest(c.Request().WithContext(ContextWithTx(ctx, tx)))
			if err := next(c); err != nil {
				return err
			}
			// Reads are complete once the handler returns; a failed commit of a
			// read-only transaction does not invalidate the response.
			_ = tx.Commit(ctx)
			return nil
		}
	}
}
