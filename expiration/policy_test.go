package expiration_test

import (
	"testing"
	"time"

	"github.com/ipni/go-dynconf/expiration"
	"github.com/stretchr/testify/require"
)

func TestMaxIdle(t *testing.T) {
	p, err := expiration.NewMaxIdle(30 * time.Minute)
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, p.Idle())

	now := time.Now()
	require.True(t, p.IsExpired(now.Add(-time.Hour), now))
	require.False(t, p.IsExpired(now.Add(-10*time.Minute), now))
	require.False(t, p.IsExpired(now.Add(-30*time.Minute), now))
	require.False(t, p.IsExpired(now.Add(time.Minute), now))

	_, err = expiration.NewMaxIdle(0)
	require.Error(t, err)
	require.Panics(t, func() { expiration.MustMaxIdle(-time.Second) })
}

func TestNever(t *testing.T) {
	now := time.Now()
	require.False(t, expiration.Never.IsExpired(time.Time{}, now))
}
