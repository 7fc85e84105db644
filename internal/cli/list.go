package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nventive/Promptitude/internal/catalog"
	"github.com/nventive/Promptitude/internal/naming"
)

var (
	listTypeFilter string
	listActive     bool
	listJSON       bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available prompt files",
	Long:  `List every synced file and every file in the prompts directory, with its activation state.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listTypeFilter, "type", "", "Filter by type (prompts, instructions, agents)")
	listCmd.Flags().BoolVar(&listActive, "active", false, "Only show active files")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	var t catalog.Type
	if listTypeFilter != "" {
		parsed, ok := catalog.ParseType(listTypeFilter)
		if !ok {
			return fmt.Errorf("unknown type %q (expected prompts, instructions or agents)", listTypeFilter)
		}
		t = parsed
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	records, err := a.catalog.List()
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	records = catalog.Filter(records, t, listActive)

	if listJSON {
		return printListJSON(cmd, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to list. Add a repository and run sync.")
		return nil
	}
	return printListTable(cmd, records)
}

func printListTable(cmd *cobra.Command, records []catalog.Record) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tSTATE\tSOURCE\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Type, r.WorkspaceName, recordState(r), recordSource(r), r.Description)
	}
	return w.Flush()
}

func printListJSON(cmd *cobra.Command, records []catalog.Record) error {
	if records == nil {
		records = []catalog.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func recordState(r catalog.Record) string {
	switch {
	case r.Broken:
		return "broken"
	case r.Active:
		return "active"
	default:
		return "-"
	}
}

func recordSource(r catalog.Record) string {
	if r.Origin == catalog.OriginWorkspace {
		return "(local)"
	}
	return naming.RepoID(r.RepositoryURL)
}
