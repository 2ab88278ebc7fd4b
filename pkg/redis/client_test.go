package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/vendora-backend/pkg/config"
)

func configWith(url, addr string) config.RedisConfig {
	return config.RedisConfig{URL: url, Address: addr, PoolSize: 10, MinIdleConns: 2}
}

func TestDelayedQueuePrimitives(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.QueueKey("payment-cancel")

	added, err := client.ZAddNX(ctx, key, "payment:1", 1000)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = client.ZAddNX(ctx, key, "payment:1", 5000)
	require.NoError(t, err)
	assert.False(t, added, "existing member must keep its original due time")

	score, ok, err := client.ZScore(ctx, key, "payment:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float64(1000), score)

	_, err = client.ZAddNX(ctx, key, "payment:2", 3000)
	require.NoError(t, err)

	due, err := client.ZRangeDue(ctx, key, 2000, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"payment:1"}, due)

	removed, err := client.ZRem(ctx, key, "payment:1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = client.ZRem(ctx, key, "payment:1")
	require.NoError(t, err)
	assert.False(t, removed, "second claim must lose")

	require.NoError(t, client.ZAdd(ctx, key, "payment:2", 100))
	due, err = client.ZRangeDue(ctx, key, 200, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"payment:2"}, due)

	_, ok, err = client.ZScore(ctx, key, "payment:404")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAttemptCounters(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.QueueKey("payment-cancel", "attempts")

	n, err := client.HIncrBy(ctx, key, "payment:9", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = client.HIncrBy(ctx, key, "payment:9", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, client.HDel(ctx, key, "payment:9"))
	n, err = client.HIncrBy(ctx, key, "payment:9", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSetNXAndGet(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "k", "v1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = client.SetNX(ctx, "k", "v2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, client.Del(ctx, "k"))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, Nil)
}

func TestUninitializedClientFails(t *testing.T) {
	client := &Client{}
	assert.Error(t, client.Ping(context.Background()))
	_, err := client.ZRem(context.Background(), "k", "m")
	assert.Error(t, err)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "vd:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "vd:queue:payment-cancel", client.QueueKey("payment-cancel"))
	assert.Equal(t, "vd:queue:payment-cancel:attempts", client.QueueKey("payment-cancel", "attempts"))
	assert.Equal(t, "vd:lock:cron", client.LockKey("cron"))
	assert.Equal(t, "vd:idempotency:id", client.IdempotencyKey("", "id"), "empty parts are skipped")
}

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	_, err := optionsFromConfig(configWith("", ""))
	require.Error(t, err)

	opts, err := optionsFromConfig(configWith("redis://localhost:6379/2", ""))
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)
}

type mockCmdable struct {
	data   map[string]string
	zsets  map[string]map[string]float64
	hashes map[string]map[string]int64
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:   make(map[string]string),
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]int64),
	}
}

func (m *mockCmdable) zset(key string) map[string]float64 {
	set, ok := m.zsets[key]
	if !ok {
		set = make(map[string]float64)
		m.zsets[key] = set
	}
	return set
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) ZAdd(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	set := m.zset(key)
	var added int64
	for _, z := range members {
		member := fmt.Sprint(z.Member)
		if _, ok := set[member]; !ok {
			added++
		}
		set[member] = z.Score
	}
	return redis.NewIntResult(added, nil)
}

func (m *mockCmdable) ZAddNX(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	set := m.zset(key)
	var added int64
	for _, z := range members {
		member := fmt.Sprint(z.Member)
		if _, ok := set[member]; ok {
			continue
		}
		set[member] = z.Score
		added++
	}
	return redis.NewIntResult(added, nil)
}

func (m *mockCmdable) ZRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	set := m.zset(key)
	var removed int64
	for _, raw := range members {
		member := fmt.Sprint(raw)
		if _, ok := set[member]; ok {
			delete(set, member)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

func (m *mockCmdable) ZScore(_ context.Context, key, member string) *redis.FloatCmd {
	score, ok := m.zset(key)[member]
	if !ok {
		return redis.NewFloatResult(0, redis.Nil)
	}
	return redis.NewFloatResult(score, nil)
}

func (m *mockCmdable) ZRangeByScore(_ context.Context, key string, opt *redis.ZRangeBy) *redis.StringSliceCmd {
	max, err := strconv.ParseFloat(opt.Max, 64)
	if err != nil {
		return redis.NewStringSliceResult(nil, err)
	}
	type entry struct {
		member string
		score  float64
	}
	var entries []entry
	for member, score := range m.zset(key) {
		if score <= max {
			entries = append(entries, entry{member, score})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].score < entries[j].score })
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if opt.Count > 0 && int64(len(out)) >= opt.Count {
			break
		}
		out = append(out, e.member)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (m *mockCmdable) HIncrBy(_ context.Context, key, field string, incr int64) *redis.IntCmd {
	hash, ok := m.hashes[key]
	if !ok {
		hash = make(map[string]int64)
		m.hashes[key] = hash
	}
	hash[field] += incr
	return redis.NewIntResult(hash[field], nil)
}

func (m *mockCmdable) HDel(_ context.Context, key string, fields ...string) *redis.IntCmd {
	hash := m.hashes[key]
	for _, f := range fields {
		delete(hash, f)
	}
	return redis.NewIntResult(int64(len(fields)), nil)
}
