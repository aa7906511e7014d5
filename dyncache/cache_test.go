package dyncache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipni/go-dynconf/dyncache"
	"github.com/ipni/go-dynconf/expiration"
	"github.com/ipni/go-dynconf/internal/test"
	"github.com/ipni/go-dynconf/resolver"
	"github.com/ipni/go-dynconf/stats"
	"github.com/stretchr/testify/require"
)

type entry struct {
	key   resolver.Key
	stats *stats.Stats
}

func (e *entry) Statistics() *stats.Stats {
	return e.stats
}

type counter struct {
	clk   clock.Clock
	calls atomic.Int32
	fail  error
}

func (c *counter) create(key resolver.Key) (*entry, error) {
	c.calls.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return &entry{key: key, stats: stats.New(c.clk)}, nil
}

func TestGetOrCreate(t *testing.T) {
	keys := test.RandomKeys(t, 2)
	c := dyncache.New[*entry]()
	cnt := &counter{}

	e1, created, err := c.GetOrCreate(keys[0], cnt.create)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, keys[0], e1.key)
	require.Equal(t, int64(1), e1.stats.InFlight())

	e2, created, err := c.GetOrCreate(keys[0], cnt.create)
	require.NoError(t, err)
	require.False(t, created)
	require.Same(t, e1, e2)
	require.Equal(t, int64(2), e1.stats.InFlight())
	require.Equal(t, int32(1), cnt.calls.Load())

	_, _, err = c.GetOrCreate(keys[1], cnt.create)
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())
	require.ElementsMatch(t, keys, c.Keys())

	got, ok := c.Get(keys[0])
	require.True(t, ok)
	require.Same(t, e1, got)
}

func TestGetOrCreateError(t *testing.T) {
	key := test.RandomKeys(t, 1)[0]
	c := dyncache.New[*entry]()
	errBoom := errors.New("boom")
	cnt := &counter{fail: errBoom}

	_, created, err := c.GetOrCreate(key, cnt.create)
	require.ErrorIs(t, err, errBoom)
	require.False(t, created)
	require.Zero(t, c.Len())

	// Retries construction from scratch.
	cnt.fail = nil
	e, created, err := c.GetOrCreate(key, cnt.create)
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, e)
	require.Equal(t, int32(2), cnt.calls.Load())
}

func TestConcurrentCreateOnce(t *testing.T) {
	keys := test.RandomKeys(t, 3)
	c := dyncache.New[*entry]()
	cnt := &counter{}

	const callers = 50
	results := make([]*entry, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, _, err := c.GetOrCreate(keys[i%len(keys)], cnt.create)
			if err != nil {
				panic(err)
			}
			results[i] = e
			e.stats.EndUse()
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(3), cnt.calls.Load())
	require.Equal(t, 3, c.Len())
	for i, e := range results {
		require.Same(t, results[i%len(keys)], e)
		require.Zero(t, e.stats.InFlight())
	}
}

func TestEvictIdle(t *testing.T) {
	keys := test.RandomKeys(t, 3)
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))
	c := dyncache.New[*entry]()
	cnt := &counter{clk: clk}
	policy := expiration.MustMaxIdle(30 * time.Minute)

	// A: idle for an hour.
	a, _, err := c.GetOrCreate(keys[0], cnt.create)
	require.NoError(t, err)
	a.stats.EndUse()

	// B: in use, stale for two hours.
	b, _, err := c.GetOrCreate(keys[1], cnt.create)
	require.NoError(t, err)

	clk.Add(time.Hour)

	// C: used recently.
	cEntry, _, err := c.GetOrCreate(keys[2], cnt.create)
	require.NoError(t, err)
	cEntry.stats.EndUse()

	clk.Add(time.Hour)
	cEntry.stats.BeginUse()
	cEntry.stats.EndUse()

	evicted := c.EvictIdle(policy, clk.Now())
	require.Len(t, evicted, 1)
	require.Same(t, a, evicted[0])
	require.Equal(t, 2, c.Len())

	_, ok := c.Get(keys[0])
	require.False(t, ok)
	_, ok = c.Get(keys[1])
	require.True(t, ok)

	// Nothing eligible; safe to repeat.
	require.Empty(t, c.EvictIdle(policy, clk.Now()))

	// Once B is released it becomes eligible.
	b.stats.EndUse()
	evicted = c.EvictIdle(policy, clk.Now())
	require.Len(t, evicted, 1)
	require.Same(t, b, evicted[0])

	// Re-creation after eviction gives a new entry with fresh statistics.
	a2, created, err := c.GetOrCreate(keys[0], cnt.create)
	require.NoError(t, err)
	require.True(t, created)
	require.NotSame(t, a, a2)
	require.Equal(t, int64(1), a2.stats.InFlight())
	a2.stats.EndUse()
	require.Zero(t, a2.stats.InFlight())
}

func TestRemoveAllAndLocked(t *testing.T) {
	keys := test.RandomKeys(t, 4)
	c := dyncache.New[*entry]()
	cnt := &counter{}
	for _, key := range keys {
		_, _, err := c.GetOrCreate(key, cnt.create)
		require.NoError(t, err)
	}

	var seen int
	c.Locked(func(all []*entry) {
		seen = len(all)
	})
	require.Equal(t, 4, seen)

	var called bool
	all := c.RemoveAll(func() { called = true })
	require.True(t, called)
	require.Len(t, all, 4)
	require.Zero(t, c.Len())
	require.Nil(t, c.RemoveAll(nil))
}
