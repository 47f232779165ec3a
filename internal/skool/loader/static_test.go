package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/chrisw65/market-profile/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestStaticRenderer(t *testing.T) {
	var headers atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers.Store(r.Header.Clone())
		if r.URL.Path == "/missing/classroom" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("content-type", "text/html")
		_, _ = w.Write([]byte(`<html><script id="__NEXT_DATA__">{"page":"/classroom"}</script></html>`))
	}))
	defer server.Close()

	renderer := NewStaticRenderer(&telemetry.Recorder{}, WithRequestsPerSecond(100))
	opts := DefaultOptions()
	opts.UserAgent = "test-agent"

	payload, err := renderer.Render(context.Background(), server.URL+"/demo/classroom", opts)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"page": "/classroom"}, payload.NextData)

	sent := headers.Load().(http.Header)
	require.Equal(t, "test-agent", sent.Get("User-Agent"))
	require.Equal(t, acceptHeader, sent.Get("Accept"))
	require.Equal(t, acceptLanguageHeader, sent.Get("Accept-Language"))

	_, err = renderer.Render(context.Background(), server.URL+"/missing/classroom", opts)
	require.Error(t, err)
}

func TestStaticRendererThroughLoader(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`<html><script type="application/ld+json">{"name":"x"}</script></html>`))
	}))
	defer server.Close()

	loader := NewLoader(
		NewStaticRenderer(&telemetry.Recorder{}, WithRequestsPerSecond(100)),
		WithSleeper(&recordingSleeper{}),
		WithTelemetry(&telemetry.Recorder{}),
	)
	payload, err := loader.Load(context.Background(), server.URL, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, int32(2), attempts.Load())
	require.Equal(t, []any{map[string]any{"name": "x"}}, payload.LdJSON)
}
