package repository

import (
	"errors"
	"strings"

	"shutterhub/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite, used by handler tests
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// findErr converts a lookup failure into an AppError.
func findErr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

// writeErr converts a write failure into an AppError, mapping unique violations to CONFLICT.
func writeErr(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return models.NewConflictError(conflictMsg)
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}
