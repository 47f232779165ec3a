package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chrisw65/market-profile/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type renderResult struct {
	payload Payload
	err     error
}

type scriptedRenderer struct {
	mutex   sync.Mutex
	results []renderResult
	calls   int
}

func (r *scriptedRenderer) Render(ctx context.Context, url string, opts Options) (Payload, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	idx := r.calls
	r.calls++
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	return r.results[idx].payload, r.results[idx].err
}

type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

var errRender = errors.New("navigation timeout")

func TestLoaderFirstAttemptSucceeds(t *testing.T) {
	renderer := &scriptedRenderer{results: []renderResult{
		{payload: Payload{HTML: "<html></html>", NextData: map[string]any{"a": 1.0}}},
	}}
	sleeper := &recordingSleeper{}
	loader := NewLoader(renderer, WithSleeper(sleeper), WithTelemetry(&telemetry.Recorder{}))

	payload, err := loader.Load(context.Background(), "https://www.skool.com/x", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "<html></html>", payload.HTML)
	require.Equal(t, []any{}, payload.LdJSON)
	require.Equal(t, 1, renderer.calls)
	require.Empty(t, sleeper.delays)
}

func TestLoaderRetriesWithLinearBackoff(t *testing.T) {
	renderer := &scriptedRenderer{results: []renderResult{
		{err: errRender},
		{err: errRender},
		{payload: Payload{HTML: "third"}},
	}}
	sleeper := &recordingSleeper{}
	tel := &telemetry.Recorder{}
	loader := NewLoader(renderer, WithSleeper(sleeper), WithTelemetry(tel))

	payload, err := loader.Load(context.Background(), "https://www.skool.com/x", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "third", payload.HTML)
	require.Equal(t, 3, renderer.calls)
	require.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, sleeper.delays)
	require.Len(t, tel.Reports("warning"), 2)
	require.Empty(t, tel.Reports("broken"))
}

func TestLoaderExhaustsAttempts(t *testing.T) {
	table := []struct {
		name     string
		retries  int
		attempts int
		delays   []time.Duration
	}{
		{name: "three attempts", retries: 3, attempts: 3, delays: []time.Duration{500 * time.Millisecond, time.Second}},
		{name: "two attempts", retries: 2, attempts: 2, delays: []time.Duration{500 * time.Millisecond}},
		{name: "zero means one", retries: 0, attempts: 1, delays: nil},
	}

	for _, test := range table {
		t.Run(test.name, func(t *testing.T) {
			renderer := &scriptedRenderer{results: []renderResult{{err: errRender}}}
			sleeper := &recordingSleeper{}
			tel := &telemetry.Recorder{}
			loader := NewLoader(renderer, WithSleeper(sleeper), WithTelemetry(tel))

			opts := DefaultOptions()
			opts.Retries = test.retries
			_, err := loader.Load(context.Background(), "https://www.skool.com/x", opts)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrLoad)
			require.ErrorIs(t, err, errRender)

			var loadErr *LoadError
			require.ErrorAs(t, err, &loadErr)
			require.Equal(t, test.attempts, loadErr.Attempts)
			require.Equal(t, "https://www.skool.com/x", loadErr.URL)

			require.Equal(t, test.attempts, renderer.calls)
			require.Equal(t, test.delays, sleeper.delays)

			broken := tel.Reports("broken")
			require.Len(t, broken, 1)
			require.Equal(t, "loader: "+report_loader_load, broken[0].ID)
		})
	}
}

func TestLoaderStopsWhenBackoffInterrupted(t *testing.T) {
	renderer := &scriptedRenderer{results: []renderResult{{err: errRender}}}
	sleeper := &recordingSleeper{err: context.Canceled}
	loader := NewLoader(renderer, WithSleeper(sleeper), WithTelemetry(&telemetry.Recorder{}))

	_, err := loader.Load(context.Background(), "https://www.skool.com/x", DefaultOptions())
	require.ErrorIs(t, err, ErrLoad)
	require.Equal(t, 1, renderer.calls)
}

func TestTimerSleeperHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := timerSleeper{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestOptionsNormalized(t *testing.T) {
	opts := Options{}.normalized()
	require.Equal(t, DefaultUserAgent, opts.UserAgent)
	require.Equal(t, 1, opts.Retries)
	require.Equal(t, WaitDOMContentLoaded, opts.WaitUntil)
	require.Equal(t, DefaultTimeout, opts.Timeout)
	require.Equal(t, DefaultBackoff, opts.Backoff)
	require.Equal(t, time.Duration(0), opts.WaitFor)
}
