package replay

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"hawx.me/code/assert"
)

func TestMemory(t *testing.T) {
	assert := assert.Wrap(t)
	ctx := context.Background()

	guard := NewMemory(time.Minute)
	defer guard.Stop()

	ok, err := guard.Consume(ctx, "abc")
	assert(err).Nil()
	assert(ok).True()

	ok, err = guard.Consume(ctx, "abc")
	assert(err).Nil()
	assert(ok).Equal(false)

	ok, _ = guard.Consume(ctx, "def")
	assert(ok).True()
}

func TestMemoryExpires(t *testing.T) {
	assert := assert.Wrap(t)
	ctx := context.Background()

	guard := NewMemory(10 * time.Millisecond)
	defer guard.Stop()

	ok, _ := guard.Consume(ctx, "abc")
	assert(ok).True()

	time.Sleep(50 * time.Millisecond)

	ok, _ = guard.Consume(ctx, "abc")
	assert(ok).True()
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	assert := assert.Wrap(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	guard := NewRedis(client, "indielogin-test-"+time.Now().Format("150405.000000"), time.Minute)

	ok, err := guard.Consume(ctx, "abc")
	assert(err).Nil()
	assert(ok).True()

	ok, err = guard.Consume(ctx, "abc")
	assert(err).Nil()
	assert(ok).Equal(false)
}
