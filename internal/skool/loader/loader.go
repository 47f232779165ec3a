// Package loader retrieves JavaScript-rendered community pages and captures
// the raw artifacts the extractors work from.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("market-profile/internal/skool/loader")

const (
	report_loader_attempt = "loader.attempt"
	report_loader_load    = "loader.load"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36"
	DefaultTimeout = 30 * time.Second
	DefaultWaitFor = 2 * time.Second
	DefaultRetries = 3
	DefaultBackoff = 500 * time.Millisecond
)

// WaitUntil names the navigation event an attempt waits for before capturing.
type WaitUntil string

const (
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
	WaitNetworkIdle      WaitUntil = "networkidle"
)

// Options controls a single Load call. Start from DefaultOptions, the zero
// value of WaitFor is meaningful (no settle delay).
type Options struct {
	UserAgent string
	// WaitFor is how long to let client-side scripts settle after navigation.
	WaitFor time.Duration
	// Retries is the total number of attempts, values below 1 mean 1.
	Retries   int
	WaitUntil WaitUntil
	// Timeout bounds a single navigation.
	Timeout time.Duration
	// Backoff is multiplied by the index of the failed attempt to get the
	// delay before the next one.
	Backoff time.Duration
}

func DefaultOptions() Options {
	return Options{
		UserAgent: DefaultUserAgent,
		WaitFor:   DefaultWaitFor,
		Retries:   DefaultRetries,
		WaitUntil: WaitDOMContentLoaded,
		Timeout:   DefaultTimeout,
		Backoff:   DefaultBackoff,
	}
}

func (o Options) normalized() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Retries < 1 {
		o.Retries = 1
	}
	if o.WaitUntil == "" {
		o.WaitUntil = WaitDOMContentLoaded
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.WaitFor < 0 {
		o.WaitFor = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	return o
}

// Payload is the raw material captured from a rendered page.
type Payload struct {
	HTML string `json:"html"`
	// NextData is the page's hydration state, its shape is not validated.
	NextData any `json:"nextData"`
	// LdJSON holds every structured-data block that parsed successfully.
	LdJSON []any `json:"ldJson"`
}

// ErrLoad matches every LoadError with errors.Is.
var ErrLoad = errors.New("page load failed")

// LoadError is returned once every attempt at loading a page has failed. Err
// is the cause of the last attempt.
type LoadError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader: %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// PageLoader is what the rest of the system depends on to get page artifacts.
//
// note: fault injection point
type PageLoader interface {
	Load(ctx context.Context, url string, opts Options) (Payload, error)
}

// Renderer performs a single attempt at rendering a page. Implementations
// must release every resource they acquire before returning.
//
// note: fault injection point
type Renderer interface {
	Render(ctx context.Context, url string, opts Options) (Payload, error)
}

// Sleeper waits between attempts.
//
// note: fault injection point
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type loaderConfig struct {
	sleeper Sleeper
	tel     telemetry.API
}

type LoaderOption func(cfg *loaderConfig)

func WithSleeper(sleeper Sleeper) LoaderOption {
	return func(cfg *loaderConfig) {
		cfg.sleeper = sleeper
	}
}

func WithTelemetry(tel telemetry.API) LoaderOption {
	return func(cfg *loaderConfig) {
		cfg.tel = tel
	}
}

// Loader retries a Renderer until it succeeds or the attempt budget runs out.
type Loader struct {
	renderer Renderer
	sleeper  Sleeper
	tel      telemetry.API
}

func NewLoader(renderer Renderer, options ...LoaderOption) Loader {
	assert.NotNil(renderer, "renderer")

	cfg := loaderConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	l := Loader{
		renderer: renderer,
		sleeper:  timerSleeper{},
		tel:      telemetry.SlogAPI{},
	}
	if cfg.sleeper != nil {
		l.sleeper = cfg.sleeper
	}
	if cfg.tel != nil {
		l.tel = cfg.tel
	}
	l.tel = telemetry.NewScopedAPI("loader", l.tel)

	return l
}

type loadState int

const (
	stateAttempting loadState = iota
	stateBackoffWait
	stateSucceeded
	stateExhausted
)

func (s loadState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateBackoffWait:
		return "backoff_wait"
	case stateSucceeded:
		return "succeeded"
	case stateExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("loadState(%d)", int(s))
}

// loadMachine tracks the progress of one Load call. Attempts are strictly
// sequential.
type loadMachine struct {
	state   loadState
	attempt int
	payload Payload
	lastErr error
}

func (l Loader) Load(ctx context.Context, url string, opts Options) (Payload, error) {
	ctx, span := tracer.Start(ctx, "loader:Load")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	opts = opts.normalized()
	m := loadMachine{state: stateAttempting}

	for {
		switch m.state {
		case stateAttempting:
			m.attempt++
			payload, err := l.attempt(ctx, url, m.attempt, opts)
			if err == nil {
				m.payload = payload
				m.state = stateSucceeded
				continue
			}
			m.lastErr = err
			l.tel.ReportWarning(report_loader_attempt, err, url, m.attempt)

			if m.attempt >= opts.Retries || ctx.Err() != nil {
				m.state = stateExhausted
				continue
			}
			m.state = stateBackoffWait

		case stateBackoffWait:
			delay := opts.Backoff * time.Duration(m.attempt)
			span.AddEvent("backoff", trace.WithAttributes(
				attribute.Int("attempt", m.attempt),
				attribute.String("delay", delay.String()),
			))
			err := l.sleeper.Sleep(ctx, delay)
			if err != nil {
				m.state = stateExhausted
				continue
			}
			m.state = stateAttempting

		case stateSucceeded:
			span.SetAttributes(attribute.Int("attempts", m.attempt))
			return m.payload, nil

		case stateExhausted:
			loadErr := &LoadError{URL: url, Attempts: m.attempt, Err: m.lastErr}
			span.RecordError(loadErr)
			span.SetStatus(codes.Error, "attempts exhausted")
			l.tel.ReportBroken(report_loader_load, loadErr)
			return Payload{}, loadErr
		}
	}
}

func (l Loader) attempt(ctx context.Context, url string, attempt int, opts Options) (Payload, error) {
	ctx, span := tracer.Start(ctx, "loader:attempt")
	defer span.End()
	span.SetAttributes(attribute.Int("attempt", attempt))

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout+opts.WaitFor)
	defer cancel()

	payload, err := l.renderer.Render(ctx, url, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return Payload{}, fmt.Errorf("attempt %d: %w", attempt, err)
	}
	if payload.LdJSON == nil {
		payload.LdJSON = []any{}
	}
	return payload, nil
}
