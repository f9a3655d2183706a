package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the chat repositories map onto domain sentinels.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsPgDuplicateError reports a unique-constraint violation, e.g. inserting a
// thread or message id twice.
func IsPgDuplicateError(err error) bool {
	return pgErrorCode(err) == codeUniqueViolation
}

// IsPgNoRowsError reports that a query matched nothing.
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError reports a foreign-key violation, e.g. a message whose
// thread does not exist.
func IsPgForeignKeyError(err error) bool {
	return pgErrorCode(err) == codeForeignKeyViolation
}
