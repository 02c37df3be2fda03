package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ публикует события в exchange (или default exchange + очередь)
type RabbitMQ struct {
	config  Config
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ подключается к RabbitMQ и объявляет очередь, если она задана
func NewRabbitMQ(ctx context.Context, cfg Config) (*RabbitMQ, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required for RabbitMQ")
	}
	if cfg.Exchange == "" && cfg.Queue == "" {
		return nil, fmt.Errorf("exchange or queue is required for RabbitMQ")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if cfg.Queue != "" {
		// Параметры должны совпадать с существующей очередью
		if _, err := channel.QueueDeclare(cfg.Queue, cfg.Durable, false, false, false, nil); err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue: %w", err)
		}
	}

	return &RabbitMQ{config: cfg, conn: conn, channel: channel}, nil
}

// Publish отправляет событие. Routing key - имя очереди или "<table>.<op>"
// при публикации в exchange.
func (r *RabbitMQ) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}

	err = r.channel.PublishWithContext(ctx,
		r.config.Exchange,
		r.routingKey(ev),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    ev.ID,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.At,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) routingKey(ev ChangeEvent) string {
	if r.config.Exchange == "" {
		return r.config.Queue
	}
	return ev.Table + "." + string(ev.Op)
}

// Close закрывает канал и соединение
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}
