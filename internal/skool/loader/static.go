package loader

import (
	"context"
	"fmt"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// StaticRenderer fetches the server-rendered markup without running any
// scripts. The community pages embed their hydration state in the initial
// response, so this is enough whenever a browser is unavailable.
type StaticRenderer struct {
	http *resty.Client
}

type staticConfig struct {
	requestsPerSecond float64
	transcripts       restyutil.InstrumentOutput
}

type StaticOption func(cfg *staticConfig)

// WithRequestsPerSecond limits how quickly the renderer issues requests.
func WithRequestsPerSecond(rps float64) StaticOption {
	return func(cfg *staticConfig) {
		cfg.requestsPerSecond = rps
	}
}

// WithTranscripts writes the full exchange of every request to output when
// debug logging is enabled.
func WithTranscripts(output restyutil.InstrumentOutput) StaticOption {
	return func(cfg *staticConfig) {
		cfg.transcripts = output
	}
}

func NewStaticRenderer(tel telemetry.API, options ...StaticOption) StaticRenderer {
	assert.NotNil(tel, "telemetry")

	cfg := staticConfig{requestsPerSecond: 2}
	for _, opt := range options {
		opt(&cfg)
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("accept-language", "en-US,en;q=0.9")

	// max burst >= rps so that no requests are dropped
	burst := int(cfg.requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(cfg.requestsPerSecond), burst)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("static_renderer", tel))
	restyutil.InstrumentClient(client, tracer, cfg.transcripts)

	return StaticRenderer{http: client}
}

func (r StaticRenderer) Render(ctx context.Context, url string, opts Options) (Payload, error) {
	res, err := r.http.R().
		SetContext(ctx).
		SetHeader("user-agent", opts.UserAgent).
		SetHeader("accept", acceptHeader).
		SetHeader("accept-language", acceptLanguageHeader).
		Get(url)
	if err != nil {
		return Payload{}, fmt.Errorf("static: get %s: %w", url, err)
	}
	if res.IsError() {
		return Payload{}, fmt.Errorf("static: get %s: unexpected status %s", url, res.Status())
	}

	return ParseHTML(res.String())
}
