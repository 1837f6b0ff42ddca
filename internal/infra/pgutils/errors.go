package pgutils

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation   = "23505"
	CodeCheckViolation    = "23514"
	CodeLockNotAvailable  = "55P03"
	CodeDeadlockDetected  = "40P01"
	CodeDuplicateDatabase = "42P04"
)

// HasCode reports whether err carries a PostgreSQL error with one of codes.
func HasCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	for _, c := range codes {
		if pgErr.Code == c {
			return true
		}
	}

	return false
}
