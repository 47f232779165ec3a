package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("market-profile/internal/campaign")

const (
	report_ollama_generate = "ollama.generate"
)

const (
	DefaultOllamaModel = "llama3"
	defaultAttempts    = 2
	defaultTimeout     = 30 * time.Second
	defaultBackoff     = time.Second
)

type OllamaOptions struct {
	BaseURL string
	Model   string
	// Attempts is the total number of requests made before giving up.
	Attempts int
	Timeout  time.Duration
	// Backoff is multiplied by the failed attempt's index.
	Backoff time.Duration
	// Transcripts optionally receives the full exchange of every request.
	Transcripts restyutil.InstrumentOutput
}

// Ollama generates ideas with a self-hosted model through the /api/generate
// endpoint.
type Ollama struct {
	http     *resty.Client
	model    string
	attempts int
	backoff  time.Duration
	tel      telemetry.API
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func NewOllama(opts OllamaOptions, tel telemetry.API) Ollama {
	assert.NotEmptyStr(opts.BaseURL, "ollama base url")
	assert.NotNil(tel, "telemetry")

	if opts.Model == "" {
		opts.Model = DefaultOllamaModel
	}
	if opts.Attempts < 1 {
		opts.Attempts = defaultAttempts
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}

	tel = telemetry.NewScopedAPI("campaign", tel)

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, tel)
	restyutil.InstrumentClient(client, tracer, opts.Transcripts)

	return Ollama{
		http:     client,
		model:    opts.Model,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		tel:      tel,
	}
}

func (o Ollama) Generate(ctx context.Context, input Input) (string, error) {
	ctx, span := tracer.Start(ctx, "ollama:Generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", o.model))

	prompt := BuildPrompt(input)

	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		ideas, err := o.generate(ctx, prompt)
		if err == nil {
			return ideas, nil
		}
		lastErr = err
		o.tel.ReportWarning(report_ollama_generate, err, attempt, o.attempts)

		if attempt == o.attempts {
			break
		}
		err = wait(ctx, o.backoff*time.Duration(attempt))
		if err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "all attempts failed")
	return "", fmt.Errorf("ollama: %w", lastErr)
}

func (o Ollama) generate(ctx context.Context, prompt string) (string, error) {
	var body generateResponse
	res, err := o.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:  o.model,
			Prompt: prompt,
			Stream: false,
		}).
		SetResult(&body).
		Post("/api/generate")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("request failed: %s %s", res.Status(), res.String())
	}

	ideas := strings.TrimSpace(body.Response)
	if ideas == "" {
		return "", ErrEmptyResponse
	}
	return ideas, nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
