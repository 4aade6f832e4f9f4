package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/annopack/pkg/pack"
	"github.com/mesh-intelligence/annopack/pkg/types"
)

// queryOptions selects entries of one pack. Every set selector narrows the
// result.
type queryOptions struct {
	byDoc      bool
	entryType  string
	component  string
	linksFrom  string
	linksTo    string
	groupsOf   string
	provenance string
}

func newQueryCmd(a *app) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <pack-id>",
		Short: "Query the indexes of an archived pack",
		Long: `Query loads an archived pack and prints the tids selected through its
indexes. Selectors are ANDed; with none, every tid is printed.

Example:
  annopack query 0192... --type Annotation --component tokenizer
  annopack query 0192... --links-from doc1/Annotation.0
  annopack query 0192... --groups-of doc1/Annotation.3
  annopack query 0192... --provenance doc1/Annotation.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.attach()
			if err != nil {
				return err
			}
			defer archive.Detach()

			_, p, err := a.loadPack(archive, args[0], opts.byDoc)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.provenance != "" {
				prov, err := p.Provenance(opts.provenance)
				if err != nil {
					return userError(err)
				}
				if a.flags.jsonMode {
					return printJSON(out, prov)
				}
				fmt.Fprintf(out, "TID:         %s\n", prov.TID)
				fmt.Fprintf(out, "Type:        %s\n", prov.EntryType)
				fmt.Fprintf(out, "Created by:  %s\n", prov.CreatedBy)
				fields := make([]string, 0, len(prov.ModifiedBy))
				for field := range prov.ModifiedBy {
					fields = append(fields, field)
				}
				sort.Strings(fields)
				for _, field := range fields {
					fmt.Fprintf(out, "Modified:    %s by %s\n", field, strings.Join(prov.ModifiedBy[field], ", "))
				}
				return nil
			}

			tids, err := selectTIDs(p, opts)
			if err != nil {
				if errors.Is(err, types.ErrInvalidEntry) {
					return userError(err)
				}
				return sysError(err)
			}

			sorted := tids.Sorted()
			if a.flags.jsonMode {
				return printJSON(out, sorted)
			}
			for _, tid := range sorted {
				fmt.Fprintln(out, tid)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.byDoc, "doc", false, "treat the argument as a document ID")
	f.StringVar(&opts.entryType, "type", "", "entries of this entry type")
	f.StringVar(&opts.component, "component", "", "entries created by this component")
	f.StringVar(&opts.linksFrom, "links-from", "", "links whose parent is this tid")
	f.StringVar(&opts.linksTo, "links-to", "", "links whose child is this tid")
	f.StringVar(&opts.groupsOf, "groups-of", "", "groups having this tid as a member")
	f.StringVar(&opts.provenance, "provenance", "", "print which components created and modified this tid")
	return cmd
}

// selectTIDs applies the selectors of opts to the indexes of p.
func selectTIDs(p *pack.Pack, opts queryOptions) (types.TIDSet, error) {
	ix := p.Index()

	var result types.TIDSet
	narrow := func(s types.TIDSet) {
		if result == nil {
			result = s
			return
		}
		for tid := range result {
			if !s.Has(tid) {
				delete(result, tid)
			}
		}
	}

	if opts.entryType != "" {
		narrow(ix.TIDsOfType(opts.entryType))
	}
	if opts.component != "" {
		narrow(ix.TIDsOfComponent(opts.component))
	}
	if opts.linksFrom != "" {
		s, err := ix.LinkIndex(opts.linksFrom, true)
		if err != nil {
			return nil, err
		}
		narrow(s)
	}
	if opts.linksTo != "" {
		s, err := ix.LinkIndex(opts.linksTo, false)
		if err != nil {
			return nil, err
		}
		narrow(s)
	}
	if opts.groupsOf != "" {
		s, err := ix.GroupIndex(opts.groupsOf)
		if err != nil {
			return nil, err
		}
		narrow(s)
	}

	if result == nil {
		result = types.NewTIDSet()
		for _, e := range p.Entries() {
			result.Add(e.TID())
		}
	}
	return result, nil
}
