package service

import (
	"context"
	"io"
	"time"

	"coursehub/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateName(ctx context.Context, id string, name string) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string) (models.User, error)
	UpdateAvatar(ctx context.Context, id string, avatar models.Avatar) (models.User, error)
	UpdateRole(ctx context.Context, id string, role models.UserRole) (models.User, error)
	SetResetCode(ctx context.Context, id string, codeHash string, expiresAt time.Time) error
	MarkResetVerified(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// SessionStore maps a user id to the snapshot served to authenticated
// requests.
type SessionStore interface {
	Get(ctx context.Context, userID string) (models.User, error)
	Set(ctx context.Context, user models.User, ttl time.Duration) error
	Replace(ctx context.Context, user models.User) error
	Delete(ctx context.Context, userID string) error
}

type PendingStore interface {
	Save(ctx context.Context, pending models.PendingRegistration, ttl time.Duration) error
	Get(ctx context.Context, id string) (models.PendingRegistration, error)
	RecordFailedAttempt(ctx context.Context, id string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, id string) error
}

type CourseStore interface {
	Create(ctx context.Context, course models.Course) (models.Course, error)
	GetByID(ctx context.Context, id string) (models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	Update(ctx context.Context, course models.Course) (models.Course, error)
	IncrementPurchased(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type CourseCache interface {
	Get(ctx context.Context, id string) (models.Course, bool, error)
	GetList(ctx context.Context) ([]models.Course, bool, error)
	// Generation is read before a database load and passed to Set or
	// SetList, which skip the write if an Invalidate happened in between.
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, course models.Course, gen int64) error
	SetList(ctx context.Context, courses []models.Course, gen int64) error
	Invalidate(ctx context.Context, id string) error
}

type OrderStore interface {
	// CreateAndGrant records the order and grants the course atomically.
	CreateAndGrant(ctx context.Context, order models.Order) (models.Order, models.User, error)
	ListDetailed(ctx context.Context) ([]models.OrderDetail, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
	List(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type AnalyticsSource interface {
	CreatedSince(ctx context.Context, entity string, since time.Time) ([]time.Time, error)
}

type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}
