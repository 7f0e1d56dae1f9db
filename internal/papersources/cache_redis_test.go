package papersources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// memoryRedis answers GET and SET from a map so a real go-redis client can be
// exercised without a server.
type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
	args map[string][]any
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: make(map[string]string), args: make(map[string][]any)}
}

func (m *memoryRedis) DialHook(next redis.DialHook) redis.DialHook { return next }

func (m *memoryRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (m *memoryRedis) ProcessHook(_ redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		args := cmd.Args()
		switch strings.ToLower(cmd.Name()) {
		case "get":
			key := fmt.Sprint(args[1])
			v, ok := m.data[key]
			if !ok {
				cmd.SetErr(redis.Nil)
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(v)
		case "set":
			key := fmt.Sprint(args[1])
			switch v := args[2].(type) {
			case []byte:
				m.data[key] = string(v)
			default:
				m.data[key] = fmt.Sprint(v)
			}
			m.args[key] = args
			cmd.(*redis.StatusCmd).SetVal("OK")
		case "ping":
			cmd.(*redis.StatusCmd).SetVal("PONG")
		default:
			err := fmt.Errorf("unsupported command %q", cmd.Name())
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func newHookedRedisCache(t *testing.T, prefix string, ttl time.Duration) (*RedisCache, *memoryRedis) {
	t.Helper()
	store := newMemoryRedis()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(store)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheWithClient(client, prefix, ttl), store
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()

	t.Run("miss is not an error", func(t *testing.T) {
		c, _ := newHookedRedisCache(t, "ra:", time.Minute)

		v, ok, err := c.Get(ctx, "https://gw.example/search_papers?query=x")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("set then hit under prefix with ttl", func(t *testing.T) {
		c, store := newHookedRedisCache(t, "ra:", time.Minute)
		key := "https://gw.example/search_papers?query=x"

		require.NoError(t, c.Set(ctx, key, []byte(`{"papers":[]}`)))

		v, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte(`{"papers":[]}`), v)

		assert.Contains(t, store.data, "ra:"+key)
		assert.NotContains(t, store.data, key)
		args := store.args["ra:"+key]
		require.Len(t, args, 5)
		assert.Equal(t, "ex", strings.ToLower(fmt.Sprint(args[3])))
		assert.EqualValues(t, 60, args[4])
	})

	t.Run("ping", func(t *testing.T) {
		c, _ := newHookedRedisCache(t, "", time.Minute)
		assert.NoError(t, c.Ping(ctx))
	})
}

func TestRedisCache_Container(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)

	c, err := NewRedisCache(ctx, RedisConfig{Addr: opts.Addr, KeyPrefix: "ra:", TTL: 30 * time.Second})
	require.NoError(t, err)
	defer c.Close()

	key := "https://api.openalex.example/works/doi:10.1/x"

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, key, []byte("body")))

	v, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("body"), v)

	raw := redis.NewClient(opts)
	defer raw.Close()

	exists, err := raw.Exists(ctx, "ra:"+key).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	ttl, err := raw.TTL(ctx, "ra:"+key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Second)

	require.NoError(t, c.Ping(ctx))
}
