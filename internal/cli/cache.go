package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/branding"
	"github.com/nventive/Promptitude/internal/config"
)

var cacheRepo string

func init() {
	cacheClearCmd.Flags().StringVar(&cacheRepo, "repo", "", "Only clear this repository's mirror")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local repository mirror",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete mirrored repository content",
	Long: `Delete the local mirror of every repository, or of one with --repo. Active
links into a deleted mirror break until the next sync restores the content.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		if cacheRepo != "" {
			ref, err := config.ParseRepository(cacheRepo)
			if err != nil {
				return err
			}
			if err := a.mirror.Clear(ref.URL); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared mirror of %s\n", ref.URL)
		} else {
			if err := a.mirror.ClearAll(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared all repository mirrors")
		}
		healAfterClear(cmd, a)
		fmt.Fprintf(cmd.OutOrStdout(), "Run '%s sync' to download them again.\n", branding.CLIName())
		return nil
	},
}

// healAfterClear re-projects active files whose workspace name changed
// because a mirror went away. Links into the cleared mirror stay broken until
// the next sync brings the content back, so those failures are only logged.
func healAfterClear(cmd *cobra.Command, a *app) {
	report, err := a.projector.Heal()
	if err != nil {
		a.log.Warn().Err(err).Msg("self-heal after clear failed")
		return
	}
	for _, res := range report.Restored {
		if res.Err == nil && res.WorkspaceName != res.Entry.WorkspaceName {
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", res.Entry.WorkspaceName, res.WorkspaceName)
		}
	}
	for _, f := range report.Failures() {
		a.log.Debug().Err(f).Msg("left for the next sync")
	}
}
