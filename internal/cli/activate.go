package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/catalog"
)

var activateRepo string

func init() {
	activateCmd.Flags().StringVar(&activateRepo, "repo", "", "Repository URL, when the name exists in several repositories")
	deactivateCmd.Flags().StringVar(&activateRepo, "repo", "", "Repository URL, when the name exists in several repositories")
	rootCmd.AddCommand(activateCmd)
	rootCmd.AddCommand(deactivateCmd)
}

var activateCmd = &cobra.Command{
	Use:   "activate <name>...",
	Short: "Project synced files into the prompts directory",
	Long: `Activate one or more synced files. A name may be the workspace name shown by
'list' or the file's original name; use --repo when the original name exists in
several repositories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		for _, name := range args {
			rec, err := a.catalog.Find(name, activateRepo)
			if err != nil {
				return err
			}
			if rec.Origin != catalog.OriginRepository {
				return fmt.Errorf("%s is not from a synced repository", name)
			}
			wsName, err := a.projector.Activate(rec.RepositoryURL, rec.OriginalName)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated %s\n", wsName)
		}
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <name>...",
	Short: "Remove activated files from the prompts directory",
	Long:  `Deactivate one or more files. The synced copy stays in the local mirror.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		for _, name := range args {
			wsName, err := deactivate(a, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %s\n", wsName)
		}
		return nil
	},
}

// deactivate removes a synced file by source, so a projection recorded under
// an older workspace name goes too. Names the catalog does not know are
// removed from the prompts directory as given.
func deactivate(a *app, name string) (string, error) {
	rec, err := a.catalog.Find(name, activateRepo)
	switch {
	case errors.Is(err, catalog.ErrNoMatch):
		return name, a.projector.Deactivate(name)
	case err != nil:
		return "", err
	case rec.Origin == catalog.OriginRepository:
		return a.projector.DeactivateSource(rec.RepositoryURL, rec.OriginalName)
	default:
		return rec.WorkspaceName, a.projector.Deactivate(rec.WorkspaceName)
	}
}
