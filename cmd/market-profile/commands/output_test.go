package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chrisw65/market-profile/internal/skool/model"

	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	buff := &bytes.Buffer{}
	previous := stdout
	stdout = buff
	t.Cleanup(func() { stdout = previous })
	return buff
}

func TestRenderItems(t *testing.T) {
	buff := captureOutput(t)
	renderItems("Classroom", []model.SkoolItem{
		{Type: model.ItemModule, ID: "m1", Title: "Getting   started\nhere", Comments: []model.Comment{{ID: "c1"}}, Media: []string{}},
		{Type: model.ItemPost, ID: "p1", PostTitle: "Weekly wins", Comments: []model.Comment{}, Media: []string{"a.png"}},
	})

	// headers and footers are upper cased by the table style
	out := strings.ToLower(buff.String())
	require.Contains(t, out, "classroom")
	require.Contains(t, out, "getting started here")
	require.Contains(t, out, "weekly wins")
	require.Contains(t, out, "2 items")
}

func TestRenderProfile(t *testing.T) {
	buff := captureOutput(t)
	renderProfile(nil)
	require.Contains(t, buff.String(), "profile unavailable")

	buff.Reset()
	renderProfile(&model.CommunityProfile{
		Community: model.Community{Slug: "growth-lab", Name: "Growth Lab", Members: 1200},
		Keywords:  []string{"growth", "ads"},
		AdStrategy: model.AdStrategy{
			Hooks:         []string{"Grow faster."},
			Angles:        []model.Angle{{Name: "Momentum", Message: "Ship weekly."}},
			CallsToAction: []string{"Join now"},
		},
	})
	out := buff.String()
	require.Contains(t, strings.ToLower(out), "growth lab")
	require.Contains(t, out, "1200")
	require.Contains(t, out, "growth, ads")
	require.Contains(t, out, "Momentum: Ship weekly.")
	require.Contains(t, out, "Join now")
}

func TestPrintJSON(t *testing.T) {
	buff := captureOutput(t)
	require.NoError(t, printJSON(map[string]int{"count": 2}))
	require.JSONEq(t, `{"count": 2}`, buff.String())
}
