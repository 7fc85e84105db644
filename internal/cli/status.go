package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/config"
	"github.com/nventive/Promptitude/internal/syncer"
	"github.com/nventive/Promptitude/internal/userdata"
)

var statusFix bool

func init() {
	statusCmd.Flags().BoolVar(&statusFix, "fix", false, "Create missing directories and fix permissions")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync state, broken links and activation drift",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		fmt.Fprintf(w, "Config:       %s\n", config.FilePath())
		fmt.Fprintf(w, "Storage:      %s\n", a.storage)
		fmt.Fprintf(w, "Mirror:       %s\n", a.mirror.Root())
		fmt.Fprintf(w, "Prompts dir:  %s\n", a.promptsDir)
		fmt.Fprintf(w, "Repositories: %d configured\n", len(a.settings.Repositories))

		last := syncer.ReadFreshnessMarker(a.fs, userdata.GetFreshnessPath(a.storage))
		if last.IsZero() {
			fmt.Fprintln(w, "Last sync:    never")
		} else {
			fmt.Fprintf(w, "Last sync:    %s\n", last.Format(time.RFC1123))
		}
		fmt.Fprintln(w)

		if err := userdata.CheckLayout(w, a.fs, a.storage, a.promptsDir, statusFix); err != nil {
			return err
		}

		fmt.Fprintln(w, "Activation check:")
		records, err := a.catalog.List()
		if err != nil {
			return fmt.Errorf("building catalog: %w", err)
		}
		active := 0
		for _, r := range records {
			switch {
			case r.Broken:
				fmt.Fprintf(w, "  [FAIL] %s is a broken link\n", r.WorkspaceName)
			case r.Active && r.RepositoryURL != "":
				active++
			}
		}
		fmt.Fprintf(w, "  [ OK ] %d active file(s)\n", active)

		drift, err := ledgerDrift(a)
		if err != nil {
			return err
		}
		for _, d := range drift {
			fmt.Fprintf(w, "  [WARN] %s\n", d)
		}
		if len(drift) > 0 {
			fmt.Fprintln(w, "  Run 'heal' or 'sync' to repair.")
		}
		return nil
	},
}

// ledgerDrift lists activation ledger entries whose projection no longer
// matches the prompts directory.
func ledgerDrift(a *app) ([]string, error) {
	entries, err := a.projector.Entries()
	if err != nil {
		return nil, err
	}
	active, err := a.projector.Active()
	if err != nil {
		return nil, err
	}

	var drift []string
	for _, e := range entries {
		if !a.mirror.Has(e.RepositoryURL, e.OriginalName) {
			drift = append(drift, fmt.Sprintf("%s: source %s is no longer mirrored", e.WorkspaceName, e.RepositoryURL))
			continue
		}
		wsName, ok := active[e.Source()]
		switch {
		case !ok:
			drift = append(drift, fmt.Sprintf("%s: recorded as active but missing", e.WorkspaceName))
		case wsName != e.WorkspaceName:
			drift = append(drift, fmt.Sprintf("%s: now resolves to %s", e.WorkspaceName, wsName))
		}
	}
	return drift, nil
}
