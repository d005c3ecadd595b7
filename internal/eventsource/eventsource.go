// Package eventsource implements statepath.EventSource over Redis
// pub/sub and a periodic Go ticker, adapted from the teacher's
// TimerEventSource/ChannelEventSource shapes.
package eventsource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/latticeform/statepath"
)

// RedisEventSource subscribes to a Redis channel named after the
// instance id and decodes each message as a statepath.SendSpec.
type RedisEventSource struct {
	client *redis.Client
	prefix string
}

func NewRedisEventSource(client *redis.Client, channelPrefix string) *RedisEventSource {
	return &RedisEventSource{client: client, prefix: channelPrefix}
}

func (s *RedisEventSource) Events(instanceID string) <-chan statepath.SendSpec {
	out := make(chan statepath.SendSpec, 16)
	sub := s.client.Subscribe(context.Background(), s.prefix+instanceID)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for msg := range ch {
			var spec statepath.SendSpec
			if err := json.Unmarshal([]byte(msg.Payload), &spec); err != nil {
				continue
			}
			out <- spec
		}
	}()
	return out
}

// TimerEventSource emits a fixed event/payload at a fixed interval, for
// timeout and heartbeat statecharts — grounded on the teacher's
// TimerEventSource ticker-and-stop-channel shape.
type TimerEventSource struct {
	event   string
	payload any
	every   time.Duration
	stop    chan struct{}
}

func NewTimerEventSource(event string, payload any, every time.Duration) *TimerEventSource {
	return &TimerEventSource{event: event, payload: payload, every: every, stop: make(chan struct{})}
}

func (t *TimerEventSource) Events(instanceID string) <-chan statepath.SendSpec {
	out := make(chan statepath.SendSpec, 1)
	ticker := time.NewTicker(t.every)
	go func() {
		defer close(out)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case out <- statepath.SendSpec{Event: t.event, Payload: t.payload}:
				default:
				}
			case <-t.stop:
				return
			}
		}
	}()
	return out
}

func (t *TimerEventSource) Stop() {
	close(t.stop)
}
