package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"coursehub/internal/ids"
	"coursehub/internal/models"
	"coursehub/internal/repository"
)

type NotificationService struct {
	notifications NotificationStore
	log           zerolog.Logger
}

func NewNotificationService(notifications NotificationStore, log zerolog.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, log: log}
}

// Record appends an unread notification to the admin feed. userID is the
// user whose action produced it. Failures are logged, never returned: the
// triggering write has already happened.
func (s *NotificationService) Record(ctx context.Context, title, message, userID string) {
	n := models.Notification{
		ID:      ids.New(),
		Title:   title,
		Message: message,
		Status:  models.NotificationUnread,
		UserID:  userID,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("title", title).Msg("record notification failed")
	}
}

func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	notifications, err := s.notifications.List(ctx)
	if err != nil {
		return nil, internalErr("list notifications", err)
	}
	return notifications, nil
}

// MarkRead flips one notification to read and returns the refreshed feed.
func (s *NotificationService) MarkRead(ctx context.Context, id string) ([]models.Notification, error) {
	if err := s.notifications.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, internalErr("update notification", err)
	}
	return s.List(ctx)
}
