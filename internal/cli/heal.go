package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/projector"
)

func init() {
	rootCmd.AddCommand(healCmd)
}

var healCmd = &cobra.Command{
	Use:   "heal",
	Short: "Repair the prompts directory without fetching",
	Long: `Repair broken links, restore active files that went missing and remove stale
copies of synced files, using only the local mirror.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		report, err := a.projector.Heal()
		if err != nil {
			return err
		}
		printHealReport(cmd.OutOrStdout(), report)

		if failures := report.Failures(); len(failures) > 0 {
			return fmt.Errorf("%d recovery attempt(s) failed", len(failures))
		}
		return nil
	},
}

func printHealReport(w io.Writer, r *projector.HealReport) {
	if len(r.Repairs) == 0 && len(r.Restored) == 0 && len(r.Removed) == 0 {
		fmt.Fprintln(w, "Nothing to repair.")
		return
	}
	for _, rep := range r.Repairs {
		if rep.Err != nil {
			fmt.Fprintf(w, "  [FAIL] %s: %v\n", rep.WorkspaceName, rep.Err)
			continue
		}
		fmt.Fprintf(w, "  [FIX ] %s -> %s\n", rep.WorkspaceName, rep.NewTarget)
	}
	for _, res := range r.Restored {
		if res.Err != nil {
			fmt.Fprintf(w, "  [FAIL] %s: %v\n", res.Entry.WorkspaceName, res.Err)
			continue
		}
		fmt.Fprintf(w, "  [FIX ] restored %s\n", res.WorkspaceName)
	}
	for _, name := range r.Removed {
		fmt.Fprintf(w, "  [FIX ] removed orphan %s\n", name)
	}
}
