package events

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisPublisher appends events to a Redis stream. The stream is capped
// approximately at maxLen entries.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

const defaultStreamMaxLen = 10000

func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewRedisPublisher(client *redis.Client, stream string) *RedisPublisher {
	return &RedisPublisher{client: client, stream: stream, maxLen: defaultStreamMaxLen}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	values := map[string]interface{}{
		"id":          e.ID,
		"type":        e.Type,
		"subject":     e.Subject,
		"occurred_at": e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range e.Attributes {
		if _, reserved := values[k]; reserved {
			continue
		}
		values[k] = v
	}

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
