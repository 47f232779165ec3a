package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/chrisw65/market-profile/internal/skool/slug"
	"github.com/chrisw65/market-profile/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(communitiesCmd)
}

var savedCmd = &cobra.Command{
	Use:   "saved <slug> [--json]",
	Short: "Prints the snapshot that was last saved for a community.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := slug.Normalize(args[0])
		saved, err := application.Store.LatestSnapshot(cmd.Context(), target)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no saved snapshot for '%s'", args[0])
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(saved)
		}
		fmt.Fprintf(stdout, "saved %s ago\n", time.Since(saved.UpdatedAt).Round(time.Second))
		renderProfile(saved.Profile)
		renderItems("Classroom", saved.Classroom)
		renderItems("Community", saved.Posts)
		return nil
	},
}

var communitiesCmd = &cobra.Command{
	Use:   "communities [--json]",
	Short: "Lists the communities that have a saved snapshot.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		communities, err := application.Store.ListCommunities(cmd.Context(), 0)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(communities)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Slug", "ID", "Created"})
		for _, c := range communities {
			t.AppendRow(table.Row{c.Slug, c.ID, c.CreatedAt.Format(time.DateTime)})
		}
		t.Render()
		return nil
	},
}
