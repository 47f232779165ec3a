// Package campaign turns a scraped community into marketing campaign ideas,
// either through a language model or a deterministic summary.
package campaign

import (
	"context"
	"errors"

	"github.com/chrisw65/market-profile/internal/assert"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	"github.com/chrisw65/market-profile/internal/skool/model"
)

const (
	report_generator_generate = "generator.generate"
)

const (
	// MaxSectionItems caps the classroom and feed items fed into a campaign.
	MaxSectionItems = 5
	unknownHero     = "Community insights unavailable"
)

var ErrEmptyResponse = errors.New("empty response from model")

type ValueStack struct {
	Experience []string `json:"experience"`
	NextSteps  []string `json:"next_steps"`
}

// Input is everything a generator gets to see about a community.
type Input struct {
	Slug            string     `json:"slug"`
	Hero            string     `json:"hero"`
	ValueStack      ValueStack `json:"valueStack"`
	Keywords        []string   `json:"keywords"`
	ClassroomTitles []string   `json:"classroomTitles"`
	PostHooks       []string   `json:"postHooks"`
}

// Generator produces markdown formatted campaign ideas.
//
// note: fault injection point
type Generator interface {
	Generate(ctx context.Context, input Input) (string, error)
}

// InputFrom derives a generator input from scrape results, profile may be nil.
func InputFrom(slug string, profile *model.CommunityProfile, classroom, posts []model.SkoolItem) Input {
	input := Input{
		Slug:            slug,
		Hero:            unknownHero,
		ValueStack:      ValueStack{Experience: []string{}, NextSteps: []string{}},
		Keywords:        []string{},
		ClassroomTitles: []string{},
		PostHooks:       []string{},
	}

	if profile != nil {
		input.Hero = firstNonEmpty(
			profile.ValueStack.Promise,
			profile.Community.HeroStatement,
			unknownHero,
		)
		if profile.ValueStack.Experience != nil {
			input.ValueStack.Experience = profile.ValueStack.Experience
		}
		if profile.ValueStack.NextSteps != nil {
			input.ValueStack.NextSteps = profile.ValueStack.NextSteps
		}
		if profile.Keywords != nil {
			input.Keywords = profile.Keywords
		}
	}

	for _, module := range classroom {
		title := firstNonEmpty(module.Title, module.Name)
		if title != "" {
			input.ClassroomTitles = append(input.ClassroomTitles, title)
		}
	}
	for _, post := range posts {
		hook := firstNonEmpty(post.Title, post.PostTitle)
		if hook != "" {
			input.PostHooks = append(input.PostHooks, hook)
		}
	}

	return input
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Fallback generates the structured summary and never fails.
type Fallback struct{}

func (Fallback) Generate(_ context.Context, input Input) (string, error) {
	return FallbackSummary(input), nil
}

type withFallback struct {
	primary Generator
	tel     telemetry.API
}

// WithFallback returns a generator that never fails: whenever primary is nil
// or returns an error, the structured summary is returned instead.
func WithFallback(primary Generator, tel telemetry.API) Generator {
	assert.NotNil(tel, "telemetry")
	return withFallback{
		primary: primary,
		tel:     telemetry.NewScopedAPI("campaign", tel),
	}
}

func (g withFallback) Generate(ctx context.Context, input Input) (string, error) {
	if g.primary == nil {
		g.tel.ReportDebug("no model configured, using fallback summary", input.Slug)
		return FallbackSummary(input), nil
	}
	ideas, err := g.primary.Generate(ctx, input)
	if err != nil {
		g.tel.ReportWarning(report_generator_generate, err, input.Slug)
		return FallbackSummary(input), nil
	}
	return ideas, nil
}
