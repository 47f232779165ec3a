package commands

import (
	"fmt"

	"github.com/chrisw65/market-profile/internal/skool/service"
	"github.com/chrisw65/market-profile/internal/skool/slug"

	"github.com/spf13/cobra"
)

const (
	kindClassroom = "classroom"
	kindCommunity = "community"
	kindAll       = "all"
)

var (
	scrapeKind string
	scrapeMax  int
	scrapeSave bool
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeKind, "kind", kindAll, "What to scrape: classroom, community or all.")
	scrapeCmd.Flags().IntVar(&scrapeMax, "max", 50, "The maximum number of modules or posts, -1 means no limit.")
	scrapeCmd.Flags().BoolVar(&scrapeSave, "save", false, "Save the snapshot when scraping everything.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape <slug> [--kind classroom|community|all] [--max N] [--json]",
	Short: "Scrapes the classroom and/or community feed of a Skool community.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		target := slug.Normalize(args[0])
		if target == "" {
			return fmt.Errorf("invalid slug '%s'", args[0])
		}

		switch scrapeKind {
		case kindClassroom:
			items := application.Service.ScrapeClassroom(ctx, target, service.ClassroomOptions{MaxModules: scrapeMax})
			if jsonOutput {
				return printJSON(items)
			}
			renderItems("Classroom", items)
		case kindCommunity:
			items := application.Service.ScrapeCommunity(ctx, target, service.CommunityOptions{MaxPosts: scrapeMax})
			if jsonOutput {
				return printJSON(items)
			}
			renderItems("Community", items)
		case kindAll:
			snapshot := application.Service.Snapshot(ctx, target, service.SnapshotOptions{
				MaxModules: scrapeMax,
				MaxPosts:   scrapeMax,
			})
			if scrapeSave && snapshot.Profile != nil {
				err := application.Store.SaveSnapshot(ctx, snapshot)
				if err != nil {
					return fmt.Errorf("failed to save snapshot: %w", err)
				}
			}
			if jsonOutput {
				return printJSON(snapshot)
			}
			renderProfile(snapshot.Profile)
			renderItems("Classroom", snapshot.Classroom)
			renderItems("Community", snapshot.Posts)
			if len(snapshot.Unavailable) > 0 {
				fmt.Fprintf(stdout, "unavailable: %v\n", snapshot.Unavailable)
			}
		default:
			return fmt.Errorf("unknown kind '%s'", scrapeKind)
		}
		return nil
	},
}
