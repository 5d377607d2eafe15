package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenAbsent and ErrTokenInvalid both read as unauthenticated to callers.
	ErrTokenAbsent       = fmt.Errorf("%w: token absent", ErrUnauthenticated)
	ErrTokenInvalid      = fmt.Errorf("%w: token invalid", ErrUnauthenticated)
	ErrSessionExpired    = errors.New("session expired")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid state")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("conflict")
	ErrInvalidLogin      = errors.New("invalid email or password")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
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

// notFound maps a missing row to ErrNotFound and passes other errors through.
func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
