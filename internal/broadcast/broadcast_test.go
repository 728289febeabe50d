package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func received(ch <-chan struct{}, within time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(within):
		return false
	}
}

func TestHub_TickReachesPeersOnly(t *testing.T) {
	hub := NewHub()
	a, b := hub.Join(), hub.Join()

	aTicks, cancelA := a.Subscribe()
	defer cancelA()
	bTicks, cancelB := b.Subscribe()
	defer cancelB()

	require.NoError(t, a.Tick(context.Background()))

	assert.True(t, received(bTicks, 100*time.Millisecond))
	assert.False(t, received(aTicks, 20*time.Millisecond))
}

func TestHub_TicksCoalesce(t *testing.T) {
	hub := NewHub()
	a, b := hub.Join(), hub.Join()
	bTicks, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Tick(context.Background()))
	}

	assert.True(t, received(bTicks, 100*time.Millisecond))
	assert.False(t, received(bTicks, 20*time.Millisecond))
}

func TestHub_CancelAndLeave(t *testing.T) {
	hub := NewHub()
	a, b, c := hub.Join(), hub.Join(), hub.Join()
	bTicks, cancelB := b.Subscribe()
	cTicks, cancelC := c.Subscribe()
	defer cancelC()

	cancelB()
	cancelB()
	c.Leave()
	require.NoError(t, a.Tick(context.Background()))

	assert.False(t, received(bTicks, 20*time.Millisecond))
	assert.False(t, received(cTicks, 20*time.Millisecond))
}

func TestRedisChannel_IgnoresOwnTicks(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	newChannel := func() *RedisChannel {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })
		ch := NewRedisChannel(client, "session:u1:activity", nil)
		require.NoError(t, ch.Start(ctx))
		t.Cleanup(func() { _ = ch.Close() })
		return ch
	}
	a, b := newChannel(), newChannel()

	aTicks, cancelA := a.Subscribe()
	defer cancelA()
	bTicks, cancelB := b.Subscribe()
	defer cancelB()

	require.NoError(t, a.Tick(ctx))

	assert.True(t, received(bTicks, time.Second))
	assert.False(t, received(aTicks, 50*time.Millisecond))
}

func TestRedisChannel_CloseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ch := NewRedisChannel(client, "ticks", nil)
	require.NoError(t, ch.Start(context.Background()))
	require.NoError(t, ch.Start(context.Background()))

	assert.NoError(t, ch.Close())
	assert.NoError(t, ch.Close())
}
