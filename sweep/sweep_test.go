package sweep_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/ipni/go-dynconf/expiration"
	"github.com/ipni/go-dynconf/internal/test"
	"github.com/ipni/go-dynconf/provider"
	"github.com/ipni/go-dynconf/sweep"
	"github.com/stretchr/testify/require"
)

type mockTarget struct {
	evict int
	err   error
	calls chan struct{}
}

func newMockTarget(evict int, err error) *mockTarget {
	return &mockTarget{
		evict: evict,
		err:   err,
		calls: make(chan struct{}, 16),
	}
}

func (m *mockTarget) SweepExpired(context.Context) (int, error) {
	m.calls <- struct{}{}
	return m.evict, m.err
}

func waitCall(t *testing.T, m *mockTarget) {
	select {
	case <-m.calls:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for sweep")
	}
}

func TestIntervalSweep(t *testing.T) {
	clk := clock.NewMock()
	tgt1 := newMockTarget(1, nil)
	tgt2 := newMockTarget(0, errors.New("deactivate failed"))

	s, err := sweep.New(sweep.WithClock(clk), sweep.WithInterval(time.Minute), sweep.WithTarget(tgt1, tgt2))
	require.NoError(t, err)
	defer s.Close()

	clk.Add(time.Minute)
	waitCall(t, tgt1)
	waitCall(t, tgt2)

	clk.Add(time.Minute)
	waitCall(t, tgt1)
	waitCall(t, tgt2)
}

func TestSweepNow(t *testing.T) {
	tgt1 := newMockTarget(2, nil)
	tgt2 := newMockTarget(3, nil)
	s, err := sweep.New(sweep.WithTarget(tgt1), sweep.WithTarget(tgt2))
	require.NoError(t, err)

	n, err := s.SweepNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, n)

	s.Close()
	s.Close()
	_, err = s.SweepNow(context.Background())
	require.ErrorIs(t, err, sweep.ErrClosed)
}

func TestNewErrors(t *testing.T) {
	_, err := sweep.New()
	require.Error(t, err)
	_, err = sweep.New(sweep.WithTarget(newMockTarget(0, nil)), sweep.WithInterval(0))
	require.ErrorContains(t, err, "option 1 failed")
	_, err = sweep.New(sweep.WithTarget(nil))
	require.Error(t, err)
}

func TestSweepProvider(t *testing.T) {
	clk := clock.NewMock()
	f := &test.Factory{}
	p, err := provider.New[*test.Resource]("swept", test.ParamResolver, f,
		provider.WithClock(clk),
		provider.WithExpirationPolicy(expiration.MustMaxIdle(time.Minute)))
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	for _, params := range test.RandomParams(4) {
		require.NoError(t, p.Do(ctx, params, func(*test.Resource) error { return nil }))
	}
	require.Equal(t, 4, p.Len())

	s, err := sweep.New(sweep.WithClock(clk), sweep.WithInterval(time.Hour), sweep.WithTarget(p))
	require.NoError(t, err)
	defer s.Close()

	clk.Add(2 * time.Minute)
	n, err := s.SweepNow(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Zero(t, p.Len())
	for _, r := range f.Created() {
		require.Equal(t, int32(1), r.Deactivations.Load())
	}
}
