// Package tx carries an open *sql.Tx through a context so ledger stores
// called inside Gateway.RunInTx join the caller's transaction.
package tx

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB and *sql.Tx the stores use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// WithTx returns ctx carrying tx. A nil tx leaves ctx unchanged.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, tx)
}

// From returns the transaction carried by ctx.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Active reports whether ctx carries a transaction.
func Active(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}

// Conn returns the transaction carried by ctx, falling back to db.
func Conn(ctx context.Context, db *sql.DB) Querier {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// ForUpdate returns " FOR UPDATE" inside a transaction and "" outside one,
// for appending to single-row SELECTs.
func ForUpdate(ctx context.Context) string {
	if Active(ctx) {
		return " FOR UPDATE"
	}
	return ""
}
