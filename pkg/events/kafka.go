package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka публикует события в Kafka topic.
// Ключ сообщения - "<table>:<id>", чтобы изменения одной строки попадали
// в одну партицию.
type Kafka struct {
	config Config
	writer *kafka.Writer
}

// NewKafka создает Kafka publisher. Соединение устанавливается при первой отправке.
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}

	return &Kafka{
		config: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			MaxAttempts:  3,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// Publish отправляет событие в topic
func (k *Kafka) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}

	if err := k.writer.WriteMessages(ctx, kafkaMessage(ev, payload)); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Close закрывает writer
func (k *Kafka) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

func kafkaMessage(ev ChangeEvent, payload []byte) kafka.Message {
	return kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%v", ev.Table, ev.Key)),
		Value: payload,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-id", Value: []byte(ev.ID)},
			{Key: "op", Value: []byte(ev.Op)},
		},
	}
}
