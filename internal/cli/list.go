package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var (
		docID     string
		state     string
		entryType string
		component string
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived packs",
		Long: `List archived packs, most recently updated first. Filters are ANDed.

Example:
  annopack list
  annopack list --doc doc1
  annopack list --type Link --component parser --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := types.Filter{}
			for key, val := range map[string]string{
				"doc_id":        docID,
				"process_state": state,
				"entry_type":    entryType,
				"component":     component,
			} {
				if val != "" {
					filter[key] = val
				}
			}
			if limit > 0 {
				filter["limit"] = limit
			}
			if offset > 0 {
				filter["offset"] = offset
			}

			archive, err := a.attach()
			if err != nil {
				return err
			}
			defer archive.Detach()

			recs, err := archive.Fetch(filter)
			if err != nil {
				if errors.Is(err, types.ErrInvalidFilter) {
					return userError(err)
				}
				return sysError(fmt.Errorf("fetch packs: %w", err))
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, recs)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDOCUMENT\tSTATE\tENTRIES\tUPDATED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					r.PackID, r.DocID, r.ProcessState, r.EntryCount, r.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&docID, "doc", "", "filter by document ID")
	cmd.Flags().StringVar(&state, "state", "", "filter by process state")
	cmd.Flags().StringVar(&entryType, "type", "", "only packs holding entries of this type")
	cmd.Flags().StringVar(&component, "component", "", "only packs holding entries created by this component")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of packs")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of packs to skip")
	return cmd
}
