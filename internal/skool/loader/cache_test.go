package loader

import (
	"context"
	"testing"
	"time"

	"github.com/chrisw65/market-profile/internal/components/chrono"
	"github.com/chrisw65/market-profile/internal/components/telemetry"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls   int
	payload Payload
	err     error
}

func (l *countingLoader) Load(ctx context.Context, url string, opts Options) (Payload, error) {
	l.calls++
	return l.payload, l.err
}

func openTestBadger(t testing.TB) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestCachedLoader(t *testing.T) {
	inner := &countingLoader{payload: Payload{
		HTML:     "<html></html>",
		NextData: map[string]any{"props": map[string]any{}},
		LdJSON:   []any{},
	}}
	clock := chrono.NewManualTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cached := NewCachedLoader(inner, openTestBadger(t), time.Minute, clock, &telemetry.Recorder{})

	ctx := context.Background()

	first, err := cached.Load(ctx, "https://www.skool.com/demo/classroom", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, inner.payload, first)

	// equivalent url after normalization
	second, err := cached.Load(ctx, "https://WWW.skool.com/demo/classroom#top", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, inner.payload, second)
	require.Equal(t, 1, inner.calls)

	clock.Advance(2 * time.Minute)
	_, err = cached.Load(ctx, "https://www.skool.com/demo/classroom", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
}

func TestCachedLoaderDoesNotCacheFailures(t *testing.T) {
	inner := &countingLoader{err: &LoadError{URL: "x", Attempts: 1, Err: errRender}}
	clock := chrono.NewManualTime(time.Now())
	cached := NewCachedLoader(inner, openTestBadger(t), time.Minute, clock, &telemetry.Recorder{})

	for range 2 {
		_, err := cached.Load(context.Background(), "https://www.skool.com/demo", DefaultOptions())
		require.ErrorIs(t, err, ErrLoad)
	}
	require.Equal(t, 2, inner.calls)
}
