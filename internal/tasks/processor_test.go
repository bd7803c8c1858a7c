package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/mail"
	"coursehub/internal/queue"
)

type fakeSender struct {
	sent []mail.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeCleaner struct {
	cutoff time.Time
}

func (c *fakeCleaner) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	c.cutoff = cutoff
	return 3, nil
}

func TestProcessorSendsMail(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(sender, &fakeCleaner{}, zerolog.New(io.Discard))

	task, err := queue.NewTask(queue.TaskMail, mail.Message{To: "ada@example.com", Template: mail.TemplateActivation})
	require.NoError(t, err)

	require.NoError(t, p.Handle(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
}

func TestProcessorSurfacesSendFailure(t *testing.T) {
	p := NewProcessor(&fakeSender{err: errors.New("smtp down")}, &fakeCleaner{}, zerolog.New(io.Discard))

	task, err := queue.NewTask(queue.TaskMail, mail.Message{To: "ada@example.com", Template: mail.TemplateActivation})
	require.NoError(t, err)

	assert.Error(t, p.Handle(context.Background(), task))
	assert.Error(t, p.Handle(context.Background(), queue.Task{Type: queue.TaskMail}))
}

func TestProcessorCleanupCutoff(t *testing.T) {
	cleaner := &fakeCleaner{}
	p := NewProcessor(&fakeSender{}, cleaner, zerolog.New(io.Discard))
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Handle(context.Background(), queue.Task{Type: queue.TaskNotificationsCleanup}))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), cleaner.cutoff)
}

func TestProcessorIgnoresUnknownTasks(t *testing.T) {
	p := NewProcessor(&fakeSender{}, &fakeCleaner{}, zerolog.New(io.Discard))
	assert.NoError(t, p.Handle(context.Background(), queue.Task{Type: "thumbnail"}))
}
