package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	TaskMail                 = "mail"
	TaskNotificationsCleanup = "notifications.cleanup"
)

// Task is the envelope carried by both transports. Payload is the JSON
// encoding of the task-specific body.
type Task struct {
	Type    string `json:"type"`
	Payload string `json:"payload,omitempty"`
}

func NewTask(taskType string, body any) (Task, error) {
	if body == nil {
		return Task{Type: taskType}, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Task{}, fmt.Errorf("encode %s payload: %w", taskType, err)
	}
	return Task{Type: taskType, Payload: string(raw)}, nil
}

func (t Task) Decode(out any) error {
	if t.Payload == "" {
		return fmt.Errorf("%s task has no payload", t.Type)
	}
	return json.Unmarshal([]byte(t.Payload), out)
}

func (t Task) values() map[string]any {
	return map[string]any{
		"type":    t.Type,
		"payload": t.Payload,
	}
}

func taskFromValues(values map[string]any) (Task, error) {
	taskType, _ := values["type"].(string)
	if taskType == "" {
		return Task{}, fmt.Errorf("message has no task type")
	}
	payload, _ := values["payload"].(string)
	return Task{Type: taskType, Payload: payload}, nil
}

type Publisher interface {
	Publish(ctx context.Context, task Task) error
}

type Handler interface {
	Handle(ctx context.Context, task Task) error
}
