package redis

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/platemap/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/platemap/internal/testutil"
	"github.com/turtacn/platemap/pkg/errors"
)

type countingOracle struct {
	calls   atomic.Int32
	out     []string
	err     error
	release chan struct{}
}

func (o *countingOracle) Name() string { return "test/v1" }

func (o *countingOracle) React(_ context.Context, a, b string) ([]string, error) {
	o.calls.Add(1)
	if o.release != nil {
		<-o.release
	}
	if o.err != nil {
		return nil, o.err
	}
	return o.out, nil
}

func (o *countingOracle) Validate(s string) bool { return s != "" }

func (o *countingOracle) CombineDisconnected(a, b string) string { return a + "." + b }

type recordingMetrics struct {
	mu     sync.Mutex
	hits   int
	misses int
}

func (m *recordingMetrics) RecordCacheAccess(cache string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func TestReactionCache_MissThenHit(t *testing.T) {
	client, mr := newTestClient(t)
	inner := &countingOracle{out: []string{"CS(=O)(=O)NC", "CS(=O)(=O)N"}}
	metrics := &recordingMetrics{}
	cache := NewReactionCache(inner, client, logging.NewNopLogger(), WithMetrics(metrics), WithTTL(time.Hour))
	ctx := context.Background()

	first, err := cache.React(ctx, "CS(=O)(=O)Cl", "CN")
	require.NoError(t, err)
	second, err := cache.React(ctx, "CS(=O)(=O)Cl", "CN")
	require.NoError(t, err)

	assert.Equal(t, inner.out, first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)

	key := cache.Key("CS(=O)(=O)Cl", "CN")
	assert.True(t, mr.Exists(key))
	ttl := mr.TTL(key)
	assert.GreaterOrEqual(t, ttl, 54*time.Minute)
	assert.LessOrEqual(t, ttl, 66*time.Minute)
}

func TestReactionCache_EmptyResultIsCached(t *testing.T) {
	client, mr := newTestClient(t)
	inner := &countingOracle{}
	cache := NewReactionCache(inner, client, nil)
	ctx := context.Background()

	out, err := cache.React(ctx, "CC", "CN")
	require.NoError(t, err)
	assert.Empty(t, out)

	raw, err := mr.Get(cache.Key("CC", "CN"))
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	_, err = cache.React(ctx, "CC", "CN")
	require.NoError(t, err)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestReactionCache_KeyDependsOnOrderAndTemplate(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewReactionCache(&countingOracle{}, client, nil, WithPrefix("x:"))

	assert.NotEqual(t, cache.Key("A", "B"), cache.Key("B", "A"))
	assert.NotEqual(t, cache.Key("AB", ""), cache.Key("A", "B"))
	assert.Contains(t, cache.Key("A", "B"), "x:")
}

func TestReactionCache_OracleErrorNotCached(t *testing.T) {
	client, mr := newTestClient(t)
	inner := &countingOracle{err: errors.New(errors.ErrCodeOracleFailed, "boom")}
	cache := NewReactionCache(inner, client, nil)

	_, err := cache.React(context.Background(), "CC", "CN")
	assert.True(t, errors.IsCode(err, errors.ErrCodeOracleFailed))
	assert.False(t, mr.Exists(cache.Key("CC", "CN")))
}

func TestReactionCache_RedisDownFallsBackToOracle(t *testing.T) {
	client, mr := newTestClient(t)
	inner := &countingOracle{out: []string{"P"}}
	metrics := &recordingMetrics{}
	log := testutil.NewMockLogger()
	cache := NewReactionCache(inner, client, log, WithMetrics(metrics))
	mr.Close()

	out, err := cache.React(context.Background(), "CC", "CN")
	require.NoError(t, err)
	assert.Equal(t, []string{"P"}, out)
	assert.Equal(t, 1, metrics.misses)
	assert.True(t, log.HasMessage("warn", "reaction cache lookup failed"))
}

func TestReactionCache_CorruptEntryRecomputed(t *testing.T) {
	client, mr := newTestClient(t)
	inner := &countingOracle{out: []string{"P"}}
	cache := NewReactionCache(inner, client, nil)
	require.NoError(t, mr.Set(cache.Key("CC", "CN"), "{not json"))

	out, err := cache.React(context.Background(), "CC", "CN")
	require.NoError(t, err)
	assert.Equal(t, []string{"P"}, out)

	raw, err := mr.Get(cache.Key("CC", "CN"))
	require.NoError(t, err)
	var stored []string
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, []string{"P"}, stored)
}

func TestReactionCache_ConcurrentMissesShareOneCall(t *testing.T) {
	client, _ := newTestClient(t)
	inner := &countingOracle{out: []string{"P"}, release: make(chan struct{})}
	cache := NewReactionCache(inner, client, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := cache.React(context.Background(), "CC", "CN")
			assert.NoError(t, err)
			results[i] = out
		}(i)
	}
	// Give the callers time to join the flight before the oracle returns.
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	wg.Wait()

	assert.LessOrEqual(t, inner.calls.Load(), int32(callers))
	for _, r := range results {
		assert.Equal(t, []string{"P"}, r)
	}
}

func TestReactionCache_PassThrough(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewReactionCache(&countingOracle{}, client, nil)

	assert.True(t, cache.Validate("C"))
	assert.False(t, cache.Validate(""))
	assert.Equal(t, "A.B", cache.CombineDisconnected("A", "B"))
	assert.Equal(t, "test/v1", cache.Name())
}

func TestJitterTTL(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitterTTL(0))
	for i := 0; i < 100; i++ {
		d := jitterTTL(time.Minute)
		assert.GreaterOrEqual(t, d, 54*time.Second)
		assert.LessOrEqual(t, d, 66*time.Second)
	}
}

//Personal.AI order the ending
