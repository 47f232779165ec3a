package ratelimit

import (
	"testing"
	"time"

	"github.com/chrisw65/market-profile/internal/components/chrono"

	"github.com/stretchr/testify/require"
)

func TestCheckFixedWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := chrono.NewManualTime(start)
	limiter := NewLimiter(clock)

	for i := range Expensive.Limit {
		result := limiter.Check("1.2.3.4", Expensive)
		require.False(t, result.Limited)
		require.Equal(t, Expensive.Limit-i-1, result.Remaining)
		require.Equal(t, start.Add(time.Minute), result.ResetAt)
	}

	result := limiter.Check("1.2.3.4", Expensive)
	require.True(t, result.Limited)
	require.Equal(t, 0, result.Remaining)

	// other identifiers and presets have their own windows
	require.False(t, limiter.Check("5.6.7.8", Expensive).Limited)
	require.False(t, limiter.Check("1.2.3.4", Anonymous).Limited)

	clock.Advance(time.Minute + time.Second)
	result = limiter.Check("1.2.3.4", Expensive)
	require.False(t, result.Limited)
	require.Equal(t, Expensive.Limit-1, result.Remaining)
}

func TestReset(t *testing.T) {
	limiter := NewLimiter(chrono.StandardTime{})
	for range Auth.Limit {
		limiter.Check("user", Auth)
	}
	require.True(t, limiter.Check("user", Auth).Limited)

	limiter.Reset()
	require.False(t, limiter.Check("user", Auth).Limited)
}
