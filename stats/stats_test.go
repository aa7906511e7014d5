package stats_test

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipni/go-dynconf/stats"
	"github.com/stretchr/testify/require"
)

func TestBeginEndUse(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(1_000_000))
	s := stats.New(clk)

	require.Zero(t, s.InFlight())
	require.Equal(t, int64(1_000_000), s.LastUsedMillis())

	clk.Add(time.Minute)
	s.BeginUse()
	require.Equal(t, int64(1), s.InFlight())
	require.Equal(t, clk.Now().UnixMilli(), s.LastUsedMillis())
	require.True(t, s.LastUsed().Equal(clk.Now()))

	s.BeginUse()
	require.Equal(t, int64(2), s.InFlight())

	s.EndUse()
	s.EndUse()
	require.Zero(t, s.InFlight())

	// Unmatched EndUse does not go negative.
	s.EndUse()
	require.Zero(t, s.InFlight())
}

func TestLastUsedMonotonic(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(5_000_000))
	s := stats.New(clk)

	s.BeginUse()
	s.EndUse()
	last := s.LastUsedMillis()

	// Clock stepping backwards must not move lastUsed back.
	clk.Set(time.UnixMilli(4_000_000))
	s.BeginUse()
	s.EndUse()
	require.Equal(t, last, s.LastUsedMillis())
}

func TestConcurrentUse(t *testing.T) {
	s := stats.New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.BeginUse()
				s.EndUse()
			}
		}()
	}
	wg.Wait()
	require.Zero(t, s.InFlight())
}
