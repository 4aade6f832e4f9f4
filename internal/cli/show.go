package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/annopack/pkg/pack"
	"github.com/mesh-intelligence/annopack/pkg/types"
)

func newShowCmd(a *app) *cobra.Command {
	var byDoc bool

	cmd := &cobra.Command{
		Use:   "show <pack-id>",
		Short: "Display an archived pack with entry statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.attach()
			if err != nil {
				return err
			}
			defer archive.Detach()

			rec, p, err := a.loadPack(archive, args[0], byDoc)
			if err != nil {
				return err
			}
			stats, err := archive.EntryStats(rec.PackID)
			if err != nil {
				return sysError(err)
			}
			ixStats := p.Index().Stats()

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, struct {
					*types.PackRecord
					Scope   string            `json:"scope"`
					Meta    types.BaseMeta    `json:"meta"`
					Entries *types.EntryStats `json:"entries"`
					Index   pack.Stats        `json:"index"`
				}{rec, p.Scope(), p.Meta(), stats, ixStats})
			}

			meta := p.Meta()
			fmt.Fprintf(out, "ID:        %s\n", rec.PackID)
			fmt.Fprintf(out, "Document:  %s\n", rec.DocID)
			fmt.Fprintf(out, "Scope:     %s\n", p.Scope())
			fmt.Fprintf(out, "State:     %s\n", meta.ProcessState)
			if meta.CacheState != "" {
				fmt.Fprintf(out, "Cache:     %s\n", meta.CacheState)
			}
			fmt.Fprintf(out, "Entries:   %d\n", rec.EntryCount)
			fmt.Fprintf(out, "Created:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated:   %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out, "\nBy type:")
			printCounts(out, stats.ByType)
			fmt.Fprintln(out, "\nBy component:")
			printCounts(out, stats.ByComponent)
			return nil
		},
	}

	cmd.Flags().BoolVar(&byDoc, "doc", false, "treat the argument as a document ID")
	return cmd
}
