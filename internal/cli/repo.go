package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/branding"
	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/mirror"
	"github.com/nventive/Promptitude/internal/provider"
)

var (
	repoBranch string
	repoPurge  bool
)

func init() {
	repoAddCmd.Flags().StringVar(&repoBranch, "branch", "", "Branch to sync (default main)")
	repoRemoveCmd.Flags().BoolVar(&repoPurge, "purge", false, "Also delete the repository's local mirror")
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoListCmd)
	rootCmd.AddCommand(repoCmd)
}

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage the repositories to sync",
}

var repoAddCmd = &cobra.Command{
	Use:   "add <url[|branch]>",
	Short: "Add a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := config.ParseRepository(args[0])
		if err != nil {
			return err
		}
		if repoBranch != "" {
			ref.Branch = repoBranch
		}
		if provider.DetectProvider(ref.URL) == provider.KindUnknown {
			return fmt.Errorf("%w: %s", provider.ErrUnsupportedURL, ref.URL)
		}
		if err := mirror.CheckURL(ref.URL); err != nil {
			return err
		}
		if err := config.AddRepository(ref); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (branch %s). Run '%s sync' to fetch it.\n", ref.URL, ref.Branch, branding.CLIName())
		return nil
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Stop syncing a repository",
	Long: `Remove a repository from the configuration. Its mirror and active files stay
in place until --purge or 'cache clear --repo' deletes them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := config.ParseRepository(args[0])
		if err != nil {
			return err
		}
		if err := config.RemoveRepository(ref.URL); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", ref.URL)

		if !repoPurge {
			return nil
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.mirror.Clear(ref.URL); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted local mirror of %s\n", ref.URL)
		healAfterClear(cmd, a)
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured and mirrored repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		mirrored, err := a.mirror.Repositories()
		if err != nil {
			return err
		}
		onDisk := make(map[string]bool, len(mirrored))
		for _, u := range mirrored {
			onDisk[u] = true
		}

		if len(a.settings.Repositories) == 0 && len(mirrored) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No repositories configured. Run '%s repo add <url>'.\n", branding.CLIName())
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "URL\tBRANCH\tPROVIDER\tMIRROR")
		configured := make(map[string]bool)
		for _, ref := range a.settings.Repositories {
			configured[ref.URL] = true
			state := "not synced"
			if onDisk[ref.URL] {
				state = "present"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ref.URL, ref.Branch, provider.DetectProvider(ref.URL), state)
		}
		for _, u := range mirrored {
			if !configured[u] {
				fmt.Fprintf(w, "%s\t-\t%s\t%s\n", u, provider.DetectProvider(u), "orphaned (not configured)")
			}
		}
		return w.Flush()
	},
}
