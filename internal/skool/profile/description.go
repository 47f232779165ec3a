package profile

import (
	"regexp"
	"strings"
)

var (
	lpTextReplacer = strings.NewReplacer(
		`\n`, "\n",
		`\(`, "(",
		`\)`, ")",
		"[ol:1]", "",
		"[li]", "\n- ",
	)
	repeatedNewlines = regexp.MustCompile(`\n{2,}`)
	bulletPrefix     = regexp.MustCompile(`^-+\s*`)
)

const actionsMarker = "what to do next"

// CleanText unescapes the landing page micro-markup: escaped newlines and
// parens are restored and list tokens become "- " bullets on their own line.
func CleanText(text string) string {
	text = lpTextReplacer.Replace(text)
	text = repeatedNewlines.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// Description is a landing page description split into its parts.
type Description struct {
	Hero     string
	Features []string
	Actions  []string
}

// ParseDescription takes the first non-empty line as the hero. The remaining
// lines are features until a line mentioning "what to do next", everything
// after it is an action. The marker line itself is dropped.
func ParseDescription(text string) Description {
	desc := Description{Features: []string{}, Actions: []string{}}
	if text == "" {
		return desc
	}

	var lines []string
	for _, line := range strings.Split(CleanText(text), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return desc
	}

	desc.Hero = lines[0]
	inActions := false
	for _, line := range lines[1:] {
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if strings.Contains(strings.ToLower(line), actionsMarker) {
			inActions = true
			continue
		}
		if inActions {
			desc.Actions = append(desc.Actions, line)
		} else {
			desc.Features = append(desc.Features, line)
		}
	}
	return desc
}
