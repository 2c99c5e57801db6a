package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("doc-1", "What is osmosis?")
	assert.True(t, strings.HasPrefix(a, "eduassist:answer:doc-1:"))
	assert.Equal(t, a, Key("doc-1", "  What is osmosis? \n"))
	assert.NotEqual(t, a, Key("doc-1", "what is OSMOSIS?"))
	assert.NotEqual(t, a, Key("doc-2", "What is osmosis?"))
	assert.NotEqual(t, a, Key("doc-1", "What is diffusion?"))
}

func TestNop(t *testing.T) {
	var c AnswerCache = Nop{}
	require.NoError(t, c.Set(context.Background(), "k", "v"))
	_, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", "v"))
	v, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, hit, _ = c.Get(context.Background(), "k")
	assert.False(t, hit)
}

type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func TestRedis_GetSet(t *testing.T) {
	fake := newFakeRedis()
	c := newRedis(fake, 0)

	_, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(context.Background(), "k", "answer"))
	assert.Equal(t, DefaultTTL, fake.ttls["k"])

	v, hit, err := c.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "answer", v)
	assert.NoError(t, c.Close())
}

func TestRedis_GetError(t *testing.T) {
	fake := newFakeRedis()
	fake.getErr = errors.New("connection refused")
	c := newRedis(fake, time.Second)

	_, hit, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, hit)
}
