package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"coursehub/internal/mail"
	"coursehub/internal/queue"
)

// NotificationRetention is how long read notifications are kept.
const NotificationRetention = 30 * 24 * time.Hour

type MailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

type NotificationCleaner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Processor struct {
	sender        MailSender
	notifications NotificationCleaner
	logger        zerolog.Logger
	now           func() time.Time
}

func NewProcessor(sender MailSender, notifications NotificationCleaner, logger zerolog.Logger) *Processor {
	return &Processor{
		sender:        sender,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, task queue.Task) error {
	switch task.Type {
	case queue.TaskMail:
		return p.handleMail(ctx, task)
	case queue.TaskNotificationsCleanup:
		return p.handleCleanup(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleMail(ctx context.Context, task queue.Task) error {
	var msg mail.Message
	if err := task.Decode(&msg); err != nil {
		return fmt.Errorf("decode mail payload: %w", err)
	}

	if err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", msg.Template, err)
	}

	p.logger.Info().Str("template", msg.Template).Msg("mail sent")
	return nil
}

func (p *Processor) handleCleanup(ctx context.Context) error {
	cutoff := p.now().Add(-NotificationRetention)
	deleted, err := p.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup notifications: %w", err)
	}

	p.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("read notifications cleaned up")
	return nil
}
