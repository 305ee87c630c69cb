package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "listenline:events"

// RedisPublisher fans events out over a pub/sub channel so the external
// notification subsystem can react without polling call_events.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}
