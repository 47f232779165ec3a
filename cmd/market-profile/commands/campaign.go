package commands

import (
	"fmt"

	"github.com/chrisw65/market-profile/internal/campaign"
	"github.com/chrisw65/market-profile/internal/skool/service"
	"github.com/chrisw65/market-profile/internal/skool/slug"
	"github.com/chrisw65/market-profile/internal/store"

	"github.com/spf13/cobra"
)

var (
	campaignSave  bool
	campaignTitle string
)

func init() {
	campaignCmd.Flags().BoolVar(&campaignSave, "save", false, "Save the generated ideas.")
	campaignCmd.Flags().StringVar(&campaignTitle, "title", "", "The title of the saved campaign.")
	rootCmd.AddCommand(campaignCmd)
}

var campaignCmd = &cobra.Command{
	Use:   "campaign <slug> [--save] [--title <title>]",
	Short: "Generates campaign ideas for a community.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		target := slug.Normalize(args[0])
		if target == "" {
			return fmt.Errorf("invalid slug '%s'", args[0])
		}

		snapshot := application.Service.Snapshot(ctx, target, service.SnapshotOptions{
			MaxModules: campaign.MaxSectionItems,
			MaxPosts:   campaign.MaxSectionItems,
		})
		input := campaign.InputFrom(target, snapshot.Profile, snapshot.Classroom, snapshot.Posts)
		ideas, err := application.Generator.Generate(ctx, input)
		if err != nil {
			return err
		}

		var saved *store.Campaign
		if campaignSave {
			entry, err := application.Store.SaveCampaign(ctx, store.Campaign{
				Slug:  target,
				Title: campaignTitle,
				Ideas: ideas,
			})
			if err != nil {
				return fmt.Errorf("failed to save campaign: %w", err)
			}
			saved = &entry
		}

		if jsonOutput {
			return printJSON(struct {
				Ideas       string          `json:"ideas"`
				Unavailable []string        `json:"unavailable,omitempty"`
				Saved       *store.Campaign `json:"saved,omitempty"`
			}{ideas, snapshot.Unavailable, saved})
		}
		fmt.Fprintln(stdout, ideas)
		if saved != nil {
			fmt.Fprintf(stdout, "\nsaved as '%s' (%s)\n", saved.Title, saved.ID)
		}
		return nil
	},
}
