package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisChannel = "tablemapper"

// Redis публикует события в Redis.
//
// Redis-ключи:
//
//	SET  <prefix>:<table>:last  <JSON>  EX <ttl>  - последнее изменение таблицы
//	PUB  <prefix>:<table>                          - поток изменений для подписчиков
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis создает Redis publisher на основе конфигурации
func NewRedis(cfg Config) (*Redis, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("address is required for Redis")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisWithClient(client, cfg.Channel, time.Duration(cfg.TTL)*time.Second), nil
}

// NewRedisWithClient использует готовый клиент
func NewRedisWithClient(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultRedisChannel
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Channel возвращает канал публикации для таблицы
func (r *Redis) Channel(table string) string {
	return r.prefix + ":" + table
}

// StateKey возвращает ключ последнего события таблицы
func (r *Redis) StateKey(table string) string {
	return r.prefix + ":" + table + ":last"
}

// Publish сохраняет событие как последнее и рассылает подписчикам
func (r *Redis) Publish(ctx context.Context, ev ChangeEvent) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.StateKey(ev.Table), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := r.client.Publish(ctx, r.Channel(ev.Table), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis
func (r *Redis) Close() error {
	return r.client.Close()
}
