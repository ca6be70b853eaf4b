package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blockconnect/pkg/config"
	"blockconnect/pkg/logger"
	"blockconnect/pkg/mirror"
	"blockconnect/pkg/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

const (
	Exchange = "blockconnect"

	NotificationQueueName = "notification_queue"
	MirrorQueueName       = "mirror_queue"

	notificationRoutingKey = "notification"
	mirrorRoutingKey       = "mirror"

	maxPriority = 10
)

// ErrPoison marks a delivery that can never be processed. It is dropped
// instead of requeued.
var ErrPoison = errors.New("poison message")

var errDeliveriesClosed = errors.New("delivery channel closed")

// NotificationTask asks the notification service to notify Recipients.
type NotificationTask struct {
	Type       models.NotificationType `json:"type"`
	Recipients []string                `json:"recipients"`
	Actor      string                  `json:"actor,omitempty"`
	Message    string                  `json:"message"`
	Data       map[string]string       `json:"data,omitempty"`
	Priority   int                     `json:"priority,omitempty"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func declare(channel *amqp.Channel) error {
	if err := channel.ExchangeDeclare(Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	queues := []struct {
		name, key string
		args      amqp.Table
	}{
		{NotificationQueueName, notificationRoutingKey, amqp.Table{"x-max-priority": maxPriority}},
		{MirrorQueueName, mirrorRoutingKey, nil},
	}
	for _, q := range queues {
		if _, err := channel.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
		if err := channel.QueueBind(q.name, q.key, Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q.name, err)
		}
	}
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func clampPriority(p int) uint8 {
	if p < 0 {
		return 0
	}
	if p > maxPriority {
		return maxPriority
	}
	return uint8(p)
}

func (c *Client) publish(ctx context.Context, routingKey string, priority uint8, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(ctx, Exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Priority:     priority,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish to exchange=%s, routing_key=%s: %v", Exchange, routingKey, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("[RABBITMQ] Published to exchange=%s, routing_key=%s: %s", Exchange, routingKey, body)
	return nil
}

// PublishNotificationTask publishes a notification task with its priority
// clamped to 0-10.
func (c *Client) PublishNotificationTask(ctx context.Context, task NotificationTask) error {
	priority := task.Priority
	if priority == 0 {
		priority = 1
	}
	return c.publish(ctx, notificationRoutingKey, clampPriority(priority), task)
}

func (c *Client) PublishMirrorTask(ctx context.Context, task mirror.Task) error {
	return c.publish(ctx, mirrorRoutingKey, 0, task)
}

// ConsumeNotificationTasks processes notification tasks with the given number
// of workers until ctx is cancelled or the channel closes.
func (c *Client) ConsumeNotificationTasks(ctx context.Context, workers int, handler func(context.Context, NotificationTask) error) error {
	return c.consume(ctx, NotificationQueueName, workers, func(ctx context.Context, body []byte) error {
		var task NotificationTask
		if err := json.Unmarshal(body, &task); err != nil {
			return fmt.Errorf("failed to unmarshal notification task: %v: %w", err, ErrPoison)
		}
		return handler(ctx, task)
	})
}

// ConsumeMirrorTasks processes mirror tasks like ConsumeNotificationTasks.
func (c *Client) ConsumeMirrorTasks(ctx context.Context, workers int, handler func(context.Context, mirror.Task) error) error {
	return c.consume(ctx, MirrorQueueName, workers, func(ctx context.Context, body []byte) error {
		var task mirror.Task
		if err := json.Unmarshal(body, &task); err != nil {
			return fmt.Errorf("failed to unmarshal mirror task: %v: %w", err, ErrPoison)
		}
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%v: %w", err, ErrPoison)
		}
		return handler(ctx, task)
	})
}

func (c *Client) consume(ctx context.Context, queue string, workers int, handle func(context.Context, []byte) error) error {
	if workers < 1 {
		workers = 1
	}
	if err := c.channel.Qos(workers, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	deliveries, err := c.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Consuming %s with %d workers", queue, workers)
	return dispatch(ctx, deliveries, workers, handle, c.logger)
}

func dispatch(ctx context.Context, deliveries <-chan amqp.Delivery, workers int, handle func(context.Context, []byte) error, log *logger.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case d, ok := <-deliveries:
					if !ok {
						return errDeliveriesClosed
					}
					settle(d, handle(ctx, d.Body), log)
				}
			}
		})
	}
	return g.Wait()
}

// settle acks a processed delivery. A failed one is requeued once; a second
// failure, or a poison message, drops it.
func settle(d amqp.Delivery, err error, log *logger.Logger) {
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			log.Warn("[RABBITMQ] Failed to ack delivery %d: %v", d.DeliveryTag, ackErr)
		}
	case errors.Is(err, ErrPoison) || d.Redelivered:
		log.Error("[RABBITMQ] Dropping delivery %d: %v, body=%s", d.DeliveryTag, err, d.Body)
		d.Nack(false, false)
	default:
		log.Warn("[RABBITMQ] Requeueing delivery %d: %v", d.DeliveryTag, err)
		d.Nack(false, true)
	}
}

// GetQueueLength returns the number of messages waiting in queue.
func (c *Client) GetQueueLength(queue string) (int, error) {
	q, err := c.channel.QueueInspect(queue)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}
