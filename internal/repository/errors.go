// Package repository implements the data access layer for the ledger.
package repository

import (
	"errors"
	"strings"

	"promptmart/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-index violation from any supported driver.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// wrapLookup maps record-not-found to a NotFound AppError and anything else to Internal.
func wrapLookup(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// wrapWrite maps unique violations to Conflict and anything else to Internal.
func wrapWrite(err error, what string) error {
	if IsUniqueViolation(err) {
		return models.NewConflictError(what + " already exists")
	}
	return models.NewInternalError(err)
}
