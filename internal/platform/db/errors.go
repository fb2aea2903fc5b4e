package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

// SQLSTATE codes the repositories translate.
const (
	ForeignKeyViolation = "23503"
	UniqueViolation     = "23505"
)

// ErrorCode returns the SQLSTATE carried by err, or "" for non-Postgres errors.
func ErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsForeignKeyViolation(err error) bool { return ErrorCode(err) == ForeignKeyViolation }

func IsUniqueViolation(err error) bool { return ErrorCode(err) == UniqueViolation }

// ConstraintError maps integrity violations onto apperr shapes. A missing
// referenced row is reported against field as a validation problem and a
// duplicate key wraps apperr.ErrConflict. Other errors pass through.
func ConstraintError(err error, field string) error {
	switch {
	case IsForeignKeyViolation(err):
		return &apperr.ValidationError{Fields: []string{field + ": referenced record does not exist"}}
	case IsUniqueViolation(err):
		var pgErr *pgconn.PgError
		errors.As(err, &pgErr)
		return fmt.Errorf("%w: %s", apperr.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
