package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Classification codes shared with the HTTP layer. SQLSTATE values are
// used verbatim so new driver codes need no renaming.
const (
	CodeRecordNotFound   = "record_not_found"
	CodeUniqueViolation  = "23505"
	CodeForeignKeyBroken = "23503"
)

// ClassifyDriverError maps a persistence error to a stable classification
// code. The HTTP layer decides status and payload from the code alone, so
// it never needs to import driver packages.
func ClassifyDriverError(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CodeRecordNotFound, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return CodeUniqueViolation, true
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return CodeForeignKeyBroken, true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}

	return "", false
}
