package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrisw65/market-profile/internal/components/chrono"

	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "classroom:demo:10", Key("classroom", "demo", 10))
	require.Equal(t, "profile", Key("profile"))
}

func TestGetOrFetch(t *testing.T) {
	clock := chrono.NewManualTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	results := NewResults(clock)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"a"}, nil
	}

	for range 3 {
		value, err := GetOrFetch(ctx, results, "posts:demo", TTLPosts, fetch)
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, value)
	}
	require.Equal(t, 1, calls)

	clock.Advance(TTLPosts)
	_, err := GetOrFetch(ctx, results, "posts:demo", TTLPosts, fetch)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	results := NewResults(chrono.StandardTime{})
	errFetch := errors.New("unavailable")

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return 0, errFetch
	}

	for range 2 {
		_, err := GetOrFetch(context.Background(), results, "k", time.Minute, fetch)
		require.ErrorIs(t, err, errFetch)
	}
	require.Equal(t, 2, calls)
	require.Equal(t, 0, results.Len())
}

func TestGetWrongType(t *testing.T) {
	results := NewResults(chrono.StandardTime{})
	Set(results, "k", 5, time.Minute)

	_, ok := Get[string](results, "k")
	require.False(t, ok)

	n, ok := Get[int](results, "k")
	require.True(t, ok)
	require.Equal(t, 5, n)

	results.Delete("k")
	_, ok = Get[int](results, "k")
	require.False(t, ok)
}

func TestGetOrFetchSurvivesCancelledCaller(t *testing.T) {
	results := NewResults(chrono.StandardTime{})

	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		close(started)
		<-release
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "fresh", nil
	}

	cancelled, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := GetOrFetch(cancelled, results, "classroom:demo", TTLClassroom, fetch)
		firstErr <- err
	}()
	<-started

	secondValue := make(chan string, 1)
	go func() {
		value, err := GetOrFetch(context.Background(), results, "classroom:demo", TTLClassroom, fetch)
		if err != nil {
			value = err.Error()
		}
		secondValue <- value
	}()

	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	require.Equal(t, "fresh", <-secondValue)
	require.Equal(t, 1, calls)

	value, ok := Get[string](results, "classroom:demo")
	require.True(t, ok)
	require.Equal(t, "fresh", value)
}
