package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseConflict       = errors.New("course was modified concurrently")
	ErrOrderExists          = errors.New("order already exists")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrPendingNotFound      = errors.New("pending registration not found")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
