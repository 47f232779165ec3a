package profile

import (
	"regexp"
	"slices"
	"strings"

	"github.com/chrisw65/market-profile/internal/skool/model"
)

const (
	maxHooks        = 3
	maxAngles       = 3
	fallbackHookLen = 140
	noInsightHook   = "Community insight unavailable."
)

type signals struct {
	hero     string
	features string
	keywords []string
}

type strategyRule struct {
	match func(s signals) bool
	hook  string
	angle model.Angle
}

var lateBloomer = regexp.MustCompile(`late|40`)

// strategyRules are evaluated in order, every matching rule contributes its
// hook and angle.
var strategyRules = []strategyRule{
	{
		match: func(s signals) bool {
			return lateBloomer.MatchString(s.hero)
		},
		hook: "Late bloomers 40+ finish your book with guided AI support.",
		angle: model.Angle{
			Name:    "Late Bloomer Breakthrough",
			Message: "Show how the community helps 40+ creators ship their book with accountability.",
		},
	},
	{
		match: func(s signals) bool {
			return strings.Contains(s.features, "challenge")
		},
		hook: "5-day Start & Shape Your Book Challenge kicks off soon.",
		angle: model.Angle{
			Name:    "Challenge Momentum",
			Message: "Use countdown-themed ads to drive FOMO into the December challenge.",
		},
	},
	{
		match: func(s signals) bool {
			return strings.Contains(s.features, "ai") || slices.Contains(s.keywords, "ai")
		},
		hook: "Simple AI templates remove the tech overwhelm from writing.",
		angle: model.Angle{
			Name:    "AI Co-Author",
			Message: "Highlight practical AI walkthroughs tailored for non-technical authors.",
		},
	},
}

type targetingRule struct {
	match func(s signals) bool
	line  string
}

var targetingRules = []targetingRule{
	{
		match: func(s signals) bool { return strings.Contains(s.hero, "40") },
		line:  "Age 40-65 aspiring authors, writing & creativity interests.",
	},
	{
		match: func(s signals) bool { return slices.Contains(s.keywords, "ai") },
		line:  "Interest in AI writing tools, ChatGPT, Jasper, Sudowrite.",
	},
	{
		match: func(signals) bool { return true },
		line:  "Lookalike audiences from engaged Skool members or email list.",
	},
}

var defaultCallsToAction = []string{
	"Comment with your book idea.",
	"Join the weekly live training.",
	"Register for the upcoming challenge.",
}

// Strategy derives the ad strategy for a community from its parsed
// description and keywords.
func Strategy(desc Description, keywords []string) model.AdStrategy {
	s := signals{
		hero:     strings.ToLower(desc.Hero),
		features: strings.ToLower(strings.Join(desc.Features, " ")),
		keywords: keywords,
	}

	hooks := []string{}
	angles := []model.Angle{}
	for _, rule := range strategyRules {
		if !rule.match(s) {
			continue
		}
		hooks = append(hooks, rule.hook)
		angles = append(angles, rule.angle)
	}
	if len(hooks) == 0 {
		hooks = append(hooks, fallbackHook(desc.Hero))
	}

	targeting := []string{}
	for _, rule := range targetingRules {
		if rule.match(s) {
			targeting = append(targeting, rule.line)
		}
	}

	callsToAction := slices.Clone(desc.Actions)
	if len(callsToAction) == 0 {
		callsToAction = slices.Clone(defaultCallsToAction)
	}

	return model.AdStrategy{
		HeroSummary:   desc.Hero,
		Hooks:         capped(hooks, maxHooks),
		Angles:        capped(angles, maxAngles),
		Targeting:     targeting,
		CallsToAction: callsToAction,
	}
}

func fallbackHook(hero string) string {
	if hero == "" {
		return noInsightHook
	}
	return truncateRunes(hero, fallbackHookLen)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func capped[T any](values []T, n int) []T {
	if len(values) > n {
		return values[:n]
	}
	return values
}
