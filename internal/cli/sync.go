package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/branding"
	"github.com/nventive/Promptitude/internal/syncer"
	"github.com/nventive/Promptitude/internal/userdata"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch configured repositories and refresh active files",
	Long: `Fetch every configured repository, update the local mirror, refresh active
files whose content changed and repair drift in the prompts directory.

A repository that fails does not stop the others. The command exits non-zero
only when every repository failed.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	repos := a.settings.Repositories
	if len(repos) == 0 {
		fmt.Fprintf(out, "No repositories configured. Run '%s repo add <url>'.\n", branding.CLIName())
		return nil
	}

	if err := userdata.EnsureLayout(a.fs, a.storage, a.promptsDir); err != nil {
		return err
	}
	report, err := a.engine().SyncAll(cmd.Context(), repos)
	if err != nil {
		return err
	}
	printSyncReport(out, report)

	err = report.Err()
	var partial *syncer.PartialError
	if errors.As(err, &partial) {
		a.log.Warn().Int("failed", len(partial.Failed)).Int("total", partial.Total).Msg("sync finished with failures")
		return nil
	}
	return err
}

func printSyncReport(w io.Writer, r *syncer.Report) {
	for _, res := range r.Repositories {
		if res.Success {
			fmt.Fprintf(w, "  [ OK ] %s (%s): %d updated\n", res.URL, res.Branch, res.ItemsUpdated)
		} else {
			fmt.Fprintf(w, "  [FAIL] %s (%s): %v\n", res.URL, res.Branch, res.Err)
		}
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  [WARN]   %s\n", warn)
		}
	}

	if h := r.Heal; h != nil {
		repaired := 0
		for _, rep := range h.Repairs {
			if rep.Err == nil {
				repaired++
			}
		}
		restored := 0
		for _, res := range h.Restored {
			if res.Err == nil {
				restored++
			}
		}
		if repaired+restored+len(h.Removed) > 0 {
			fmt.Fprintf(w, "Self-heal: %d link(s) repaired, %d active file(s) restored, %d orphan(s) removed\n",
				repaired, restored, len(h.Removed))
		}
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  [WARN] %s\n", warn)
	}

	fmt.Fprintf(w, "Synced %d of %d repositories, %d file(s) updated.\n",
		r.Succeeded(), len(r.Repositories), r.TotalItemsUpdated)
}
