package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keyspace answers GET, SET and DEL from memory so the store runs against a real
// client without a server.
type keyspace struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func (k *keyspace) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (k *keyspace) ProcessHook(_ redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		k.mu.Lock()
		defer k.mu.Unlock()
		if k.err != nil {
			cmd.SetErr(k.err)
			return k.err
		}
		args := cmd.Args()
		key := fmt.Sprint(args[1])
		switch cmd.Name() {
		case "get":
			v, ok := k.values[key]
			if !ok {
				cmd.SetErr(redis.Nil)
				return redis.Nil
			}
			cmd.(*redis.StringCmd).SetVal(v)
		case "set":
			k.values[key] = fmt.Sprint(args[2])
			cmd.(*redis.StatusCmd).SetVal("OK")
		case "del":
			_, ok := k.values[key]
			delete(k.values, key)
			if ok {
				cmd.(*redis.IntCmd).SetVal(1)
			}
		default:
			err := fmt.Errorf("unexpected command %s", cmd.Name())
			cmd.SetErr(err)
			return err
		}
		return nil
	}
}

func (k *keyspace) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newTestRedisStore(t *testing.T) (*RedisSecretStore, *keyspace) {
	t.Helper()
	ks := &keyspace{values: map[string]string{}}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	client.AddHook(ks)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSecretStore(client), ks
}

func TestRedisSecretStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, ks := newTestRedisStore(t)
	region := uuid.New()

	_, ok, err := store.Get(ctx, region)
	require.NoError(t, err, "redis.Nil means absent, not failure")
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, region, "abc123"))
	assert.Equal(t, "abc123", ks.values[secretKeyPrefix+region.String()])

	secret, ok, err := store.Get(ctx, region)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", secret)

	require.NoError(t, store.Clear(ctx, region))
	_, ok, err = store.Get(ctx, region)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, store.Clear(ctx, region))
}

func TestRedisSecretStoreSurfacesServerErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, ks := newTestRedisStore(t)
	ks.err = errors.New("LOADING Redis is loading the dataset in memory")

	_, ok, err := store.Get(ctx, uuid.New())
	require.Error(t, err)
	assert.False(t, ok)
	require.Error(t, store.Set(ctx, uuid.New(), "abc123"))
}

func TestConnectAcceptsURLAndAddress(t *testing.T) {
	t.Parallel()

	client, err := Connect(context.Background(), "redis://:pw@cache.internal:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", client.Options().Addr)
	assert.Equal(t, 2, client.Options().DB)
	_ = client.Close()

	client, err = Connect(context.Background(), "cache.internal:6379")
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6379", client.Options().Addr)
	_ = client.Close()

	_, err = Connect(context.Background(), "redis://cache.internal:6379/not-a-db")
	require.Error(t, err)
}
