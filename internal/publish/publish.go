// Package publish implements statepath.EventPublisher over a plain Go
// channel and over Redis pub/sub.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/latticeform/statepath"
)

// ChannelPublisher forwards every snapshot to a Go channel, dropping it
// if the channel has no room rather than blocking the instance's drain
// goroutine — grounded on the teacher's ChannelPublisher non-blocking
// select-with-default shape.
type ChannelPublisher struct {
	ch chan<- statepath.Snapshot
}

func NewChannelPublisher(ch chan<- statepath.Snapshot) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(instanceID string, update statepath.Snapshot) error {
	select {
	case p.ch <- update:
		return nil
	default:
		return nil
	}
}

// RedisPublisher publishes each snapshot, JSON-encoded, to a channel
// named after the instance id.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

func NewRedisPublisher(client *redis.Client, channelPrefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: channelPrefix}
}

func (p *RedisPublisher) Publish(instanceID string, update statepath.Snapshot) error {
	data, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("publish: marshal %s: %w", instanceID, err)
	}
	if err := p.client.Publish(context.Background(), p.prefix+instanceID, data).Err(); err != nil {
		return fmt.Errorf("publish: redis publish %s: %w", instanceID, err)
	}
	return nil
}
