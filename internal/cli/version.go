package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/branding"
	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/updater"
	"github.com/nventive/Promptitude/internal/userdata"
)

var (
	versionShort bool
	versionJSON  bool
	versionCheck bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print version number only")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version info as JSON")
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "Check GitHub for a newer release")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(out, buildVersion)
			return nil
		}

		var latest *updater.VersionCache
		if versionCheck {
			c, err := checkLatest(cmd)
			if err != nil {
				return err
			}
			latest = c
		}

		if versionJSON {
			info := map[string]any{
				"version": buildVersion,
				"commit":  buildCommit,
				"date":    buildDate,
			}
			if latest != nil {
				info["latest"] = latest.LatestVersion
				info["update_available"] = latest.UpdateAvailable
			}
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling version info: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%s version %s (commit: %s, built: %s)\n", branding.CLIName(), buildVersion, buildCommit, buildDate)
		if latest != nil {
			if latest.UpdateAvailable {
				updater.PrintUpdateBanner(out, buildVersion, latest.LatestVersion, latest.ReleaseURL)
			} else {
				fmt.Fprintln(out, "You are on the latest release.")
			}
		}
		return nil
	},
}

func checkLatest(cmd *cobra.Command) (*updater.VersionCache, error) {
	settings, err := config.Current()
	if err != nil {
		return nil, err
	}
	storage, err := userdata.GetStorageRoot(settings.StorageDir)
	if err != nil {
		return nil, err
	}
	cache, err := updater.New(buildVersion, storage).Check(cmd.Context())
	if err != nil && cache == nil {
		return nil, fmt.Errorf("checking for updates: %w", err)
	}
	return cache, nil
}
