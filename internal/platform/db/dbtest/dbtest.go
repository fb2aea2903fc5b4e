// Package dbtest drives pgx-backed repositories without a database.
package dbtest

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/krauzhul/VoyagMED/internal/platform/db"
)

// failingTx answers every statement with err. Methods a repository has no
// business calling inside a request panic through the nil embedded Tx.
type failingTx struct {
	pgx.Tx
	err error
}

func (f failingTx) QueryRow(context.Context, string, ...any) pgx.Row { return failingRow{f.err} }

func (f failingTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, f.err }

func (f failingTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.err
}

type failingRow struct{ err error }

func (r failingRow) Scan(...any) error { return r.err }

// WithFailingTx returns a context whose transaction fails every statement
// with err, the way Postgres reports a rejected write.
func WithFailingTx(ctx context.Context, err error) context.Context {
	return db.WithTx(ctx, failingTx{err: err})
}

// ForeignKeyViolation is the error Postgres returns when a write names a
// parent row that does not exist.
func ForeignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: db.ForeignKeyViolation, ConstraintName: constraint, Message: "insert or update violates foreign key constraint"}
}
