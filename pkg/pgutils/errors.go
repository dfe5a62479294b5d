// Package pgutils classifies PostgreSQL errors by SQLSTATE.
package pgutils

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgreSQL error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeUndefinedTable      = "42P01"
)

// Code returns the SQLSTATE carried by err, or "" when err is not a
// PostgreSQL error. Both pgx and bun's pgdriver errors are recognized.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return drvErr.Field('C')
	}
	return ""
}

// IsUniqueViolation reports a unique constraint violation (23505).
func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

// IsForeignKeyViolation reports a foreign key violation (23503).
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

// IsUndefinedTable reports a query against a table that does not exist (42P01),
// which is what an unmigrated database looks like.
func IsUndefinedTable(err error) bool {
	return hasCode(err, CodeUndefinedTable)
}

func hasCode(err error, code string) bool {
	return err != nil && Code(err) == code
}
