package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// AMQPClient publishes and consumes tasks on one durable queue.
type AMQPClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  zerolog.Logger
}

func NewAMQPClient(url, queueName string, logger zerolog.Logger) (*AMQPClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare %s: %w", queueName, err)
	}

	return &AMQPClient{
		conn:    conn,
		channel: ch,
		queue:   q,
		logger:  logger,
	}, nil
}

func (c *AMQPClient) Publish(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	return c.channel.PublishWithContext(ctx, "", c.queue.Name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
}

// Consume blocks until ctx is done or the delivery channel closes. Failed
// deliveries are requeued once and then dropped.
func (c *AMQPClient) Consume(ctx context.Context, consumer string, handler Handler) error {
	if err := c.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}

	deliveries, err := c.channel.Consume(c.queue.Name, consumer, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("amqp delivery channel closed")
			}
			c.deliver(ctx, d, handler)
		}
	}
}

func (c *AMQPClient) deliver(ctx context.Context, d amqp.Delivery, handler Handler) {
	var task Task
	if err := json.Unmarshal(d.Body, &task); err != nil || task.Type == "" {
		c.logger.Error().Err(err).Msg("dropping malformed delivery")
		_ = d.Nack(false, false)
		return
	}

	if err := handler.Handle(ctx, task); err != nil {
		c.logger.Error().Err(err).Str("type", task.Type).Bool("redelivered", d.Redelivered).Msg("handle delivery failed")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *AMQPClient) Close() {
	_ = c.channel.Close()
	_ = c.conn.Close()
}
