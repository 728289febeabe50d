package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisChannel publishes ticks on a Redis pub/sub channel. The message body
// is the sender's origin id so a participant can drop its own ticks.
type RedisChannel struct {
	client  *redis.Client
	channel string
	origin  string
	log     *slog.Logger

	subs subscribers

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisChannel(client *redis.Client, channel string, log *slog.Logger) *RedisChannel {
	if log == nil {
		log = slog.Default()
	}
	return &RedisChannel{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log.With("component", "broadcast", "channel", channel),
	}
}

// Start subscribes to the Redis channel and forwards foreign ticks to local
// subscribers until Close. It returns once the subscription is confirmed.
func (r *RedisChannel) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubsub != nil {
		return nil
	}

	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.pubsub = ps
	r.done = make(chan struct{})

	go r.loop(ps.Channel(), r.done)
	r.log.Debug("broadcast subscribed", "origin", r.origin)
	return nil
}

func (r *RedisChannel) loop(msgs <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for m := range msgs {
		if m.Payload == r.origin {
			continue
		}
		r.subs.notify()
	}
}

func (r *RedisChannel) Tick(ctx context.Context) error {
	if err := r.client.Publish(ctx, r.channel, r.origin).Err(); err != nil {
		return fmt.Errorf("publish tick: %w", err)
	}
	return nil
}

func (r *RedisChannel) Subscribe() (<-chan struct{}, func()) {
	return r.subs.add()
}

// Close ends the Redis subscription and waits for the forwarding loop.
func (r *RedisChannel) Close() error {
	r.mu.Lock()
	ps, done := r.pubsub, r.done
	r.pubsub, r.done = nil, nil
	r.mu.Unlock()

	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}
