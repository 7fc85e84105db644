package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/branding"
	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/syncer"
	"github.com/nventive/Promptitude/internal/updater"
	"github.com/nventive/Promptitude/internal/userdata"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` keeps a local library of prompt, instruction and agent files in sync
with remote Git repositories and projects the ones you activate into your
editor's prompts directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()

		// Skip hints for commands that manage their own state.
		switch cmd.Name() {
		case "sync", "version", "config", "help", "completion":
			return
		}
		printStartupHints(cmd)
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// printStartupHints prints non-blocking notices from cached state only.
func printStartupHints(cmd *cobra.Command) {
	settings, err := config.Current()
	if err != nil {
		return
	}
	storage, err := userdata.GetStorageRoot(settings.StorageDir)
	if err != nil {
		return
	}

	updater.New(buildVersion, storage).PrintCachedBanner(cmd.ErrOrStderr())

	if len(settings.Repositories) > 0 && syncer.IsStale(appFs, userdata.GetFreshnessPath(storage), syncer.DefaultMaxAge) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Prompt library has not been synced in the last day. Run '%s sync'.\n", branding.CLIName())
	}
}
