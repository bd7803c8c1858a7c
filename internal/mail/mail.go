// Package mail queues outbound email for the worker and renders and
// delivers it there.
package mail

import (
	"context"
	"fmt"

	"coursehub/internal/queue"
)

const (
	TemplateActivation        = "activation"
	TemplateQuestionReply     = "question-reply"
	TemplateOrderConfirmation = "order-confirmation"
	TemplateResetPassword     = "reset-password"
)

type Message struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// QueueDispatcher hands messages to the task transport. A nil error means
// the message was accepted by the broker, not that it was delivered.
type QueueDispatcher struct {
	publisher queue.Publisher
}

func NewQueueDispatcher(publisher queue.Publisher) *QueueDispatcher {
	return &QueueDispatcher{publisher: publisher}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail %s: empty recipient", msg.Template)
	}
	if !HasTemplate(msg.Template) {
		return fmt.Errorf("mail: unknown template %q", msg.Template)
	}

	task, err := queue.NewTask(queue.TaskMail, msg)
	if err != nil {
		return err
	}
	if err := d.publisher.Publish(ctx, task); err != nil {
		return fmt.Errorf("enqueue mail %s: %w", msg.Template, err)
	}
	return nil
}
