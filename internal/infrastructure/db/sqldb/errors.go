package sqldb

import (
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/99minutos/catalog-system/internal/core/domain"
)

// uniqueViolation is the SQLSTATE Postgres reports for a duplicate key.
const uniqueViolation = "23505"

// isDuplicateKey reports whether err is a primary key or unique constraint
// violation from any of the supported drivers.
func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// insertError wraps a failed insert, marking key collisions as
// domain.ErrDuplicateKey.
func insertError(err error, table string) error {
	wrapped := errors.Wrapf(err, "sqldb: insert %s", table)
	if isDuplicateKey(err) {
		return errors.Mark(wrapped, domain.ErrDuplicateKey)
	}
	return wrapped
}
