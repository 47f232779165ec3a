package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chrisw65/market-profile/internal/skool/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

var stdout io.Writer = os.Stdout

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(stdout)
	return t
}

func printJSON(value any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func truncateText(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	return text.Trim(s, max)
}

func renderItems(title string, items []model.SkoolItem) {
	t := newTable()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Type", "ID", "Title", "Comments", "Media", "URL"})
	for _, item := range items {
		t.AppendRow(table.Row{
			item.Type,
			item.ID,
			truncateText(item.DisplayTitle(), 48),
			len(item.Comments),
			len(item.Media),
			item.URL,
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d items", len(items))})
	t.Render()
}

func renderProfile(profile *model.CommunityProfile) {
	if profile == nil {
		fmt.Fprintln(stdout, "profile unavailable")
		return
	}

	t := newTable()
	t.SetTitle(profile.Community.Name)
	t.AppendRows([]table.Row{
		{"Slug", profile.Community.Slug},
		{"Tagline", truncateText(profile.Community.Tagline, 80)},
		{"Members", int64(profile.Community.Members)},
		{"Online", int64(profile.Community.OnlineMembers)},
		{"Courses", int64(profile.Community.Courses)},
		{"Owner", profile.Owner.Name},
		{"Promise", truncateText(profile.ValueStack.Promise, 80)},
		{"Keywords", strings.Join(profile.Keywords, ", ")},
	})
	t.Render()

	strategy := newTable()
	strategy.SetTitle("Ad Strategy")
	strategy.AppendHeader(table.Row{"Kind", "Value"})
	for _, hook := range profile.AdStrategy.Hooks {
		strategy.AppendRow(table.Row{"hook", truncateText(hook, 80)})
	}
	for _, angle := range profile.AdStrategy.Angles {
		strategy.AppendRow(table.Row{"angle", fmt.Sprintf("%s: %s", angle.Name, truncateText(angle.Message, 64))})
	}
	for _, line := range profile.AdStrategy.Targeting {
		strategy.AppendRow(table.Row{"targeting", truncateText(line, 80)})
	}
	for _, cta := range profile.AdStrategy.CallsToAction {
		strategy.AppendRow(table.Row{"cta", cta})
	}
	strategy.Render()
}
