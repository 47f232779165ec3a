package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile <slug> [--json]",
	Short: "Builds the marketing profile of a community from its about page.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := application.Service.FetchCommunityProfile(cmd.Context(), args[0])
		if jsonOutput {
			return printJSON(profile)
		}
		if profile == nil {
			return fmt.Errorf("unable to load the profile of '%s'", args[0])
		}
		renderProfile(profile)
		return nil
	},
}
