package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/models"
)

func TestNotificationFeed(t *testing.T) {
	store := &fakeNotifications{}
	svc := NewNotificationService(store, nopLog)
	ctx := context.Background()

	svc.Record(ctx, "New Order", "You have a new order", "u1")
	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationUnread, list[0].Status)

	list, err = svc.MarkRead(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationRead, list[0].Status)

	_, err = svc.MarkRead(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}
