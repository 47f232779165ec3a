package campaign

import (
	"fmt"
	"strings"
)

const heroSummaryLen = 200

// BuildPrompt renders the strategist prompt sent to language models.
func BuildPrompt(input Input) string {
	return strings.Join([]string{
		"You are an AI marketing strategist specializing in online community growth.",
		"Analyze the following community data and generate a comprehensive marketing campaign plan.",
		"",
		"## Community Data",
		fmt.Sprintf("- Community: %s", input.Slug),
		fmt.Sprintf("- Hero Statement: %s", input.Hero),
		fmt.Sprintf("- Value Proposition: %s", strings.Join(input.ValueStack.Experience, "; ")),
		fmt.Sprintf("- Member Actions: %s", strings.Join(input.ValueStack.NextSteps, "; ")),
		fmt.Sprintf("- Keywords: %s", strings.Join(input.Keywords, ", ")),
		fmt.Sprintf("- Course Modules: %s", strings.Join(input.ClassroomTitles, "; ")),
		fmt.Sprintf("- Engagement Hooks: %s", strings.Join(input.PostHooks, "; ")),
		"",
		"## Required Output",
		"Generate a marketing campaign plan with:",
		"1. **Positioning Angles** (2-3 unique positioning strategies)",
		"2. **Ad Hooks** (3-5 compelling hooks for ads)",
		"3. **Target Audience** (detailed audience profile)",
		"4. **Call-to-Actions** (specific CTAs for different channels)",
		"5. **Content Strategy** (key themes and topics)",
		"",
		"Use markdown formatting with clear sections.",
	}, "\n")
}

func bulletSection(lines *[]string, heading string, intro string, items []string, max int) {
	if len(items) == 0 {
		return
	}
	*lines = append(*lines, heading)
	if intro != "" {
		*lines = append(*lines, intro)
	}
	for _, item := range items[:min(len(items), max)] {
		*lines = append(*lines, "- "+item)
	}
	*lines = append(*lines, "")
}

// FallbackSummary lays the community data out as a markdown campaign brief
// without any model involved.
func FallbackSummary(input Input) string {
	lines := []string{
		fmt.Sprintf("# Campaign Strategy for %s", input.Slug),
		"",
	}

	if input.Hero != "" {
		hero := []rune(input.Hero)
		message := string(hero[:min(len(hero), heroSummaryLen)])
		if len(hero) > heroSummaryLen {
			message += "..."
		}
		lines = append(lines,
			"## Positioning",
			"**Core Message:** "+message,
			"",
		)
	}

	bulletSection(&lines, "## Value Highlights", "", input.ValueStack.Experience, 5)
	bulletSection(&lines, "## Course Content", "Featured modules:", input.ClassroomTitles, 5)
	bulletSection(&lines, "## Content Hooks", "", input.PostHooks, 5)
	bulletSection(&lines, "## Call-to-Actions", "", input.ValueStack.NextSteps, 5)

	if len(input.Keywords) > 0 {
		lines = append(lines,
			"## Target Keywords",
			strings.Join(input.Keywords[:min(len(input.Keywords), 10)], ", "),
			"",
		)
	}

	lines = append(lines,
		"---",
		"*Note: AI generation unavailable. This is a structured summary of community data.*",
	)
	return strings.Join(lines, "\n")
}
