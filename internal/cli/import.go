package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/annopack/pkg/pack"
	"github.com/mesh-intelligence/annopack/pkg/types"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		packID string
		state  string
	)

	cmd := &cobra.Command{
		Use:   "import <file|->...",
		Short: "Archive serialized packs",
		Long: `Import reads serialized packs, validates each by rebuilding the pack and
its indexes, and stores them in the archive. Files may be xz-compressed.
Use "-" to read from stdin. Nothing is archived if any input is invalid.

Example:
  annopack import doc1.pack.json doc2.pack.json.xz
  annopack import --id 0192... --state parsed doc1.pack.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if packID != "" && len(args) > 1 {
				return userError(errors.New("--id requires exactly one input"))
			}
			if i := slices.Index(args, "-"); i >= 0 && slices.Contains(args[i+1:], "-") {
				return userError(errors.New("stdin may be given only once"))
			}

			recs, err := a.decodeInputs(cmd.InOrStdin(), args, state)
			if err != nil {
				return err
			}
			if packID != "" {
				recs[0].PackID = packID
			}

			archive, err := a.attach()
			if err != nil {
				return err
			}
			defer archive.Detach()

			if err := a.putAll(archive, recs, args); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, recs)
			}
			for _, rec := range recs {
				fmt.Fprintln(out, rec.PackID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&packID, "id", "", "replace the archived pack with this ID")
	cmd.Flags().StringVar(&state, "state", "", "set the process_state before archiving")
	return cmd
}

// putAll archives recs in order. When a Put fails, the records already
// written are removed, or restored to their previous version when they
// replaced one.
func (a *app) putAll(archive types.Archive, recs []*types.PackRecord, names []string) error {
	var previous []*types.PackRecord
	var written []string
	for i, rec := range recs {
		var prev *types.PackRecord
		if rec.PackID != "" {
			got, err := archive.Get(rec.PackID)
			switch {
			case err == nil:
				prev = got
			case !errors.Is(err, types.ErrNotFound):
				a.rollback(archive, written, previous)
				return sysError(fmt.Errorf("archive %s: %w", names[i], err))
			}
		}

		id, err := archive.Put(rec)
		if err != nil {
			a.rollback(archive, written, previous)
			if errors.Is(err, types.ErrInvalidData) {
				return userError(fmt.Errorf("%s: %w", names[i], err))
			}
			return sysError(fmt.Errorf("archive %s: %w", names[i], err))
		}
		written = append(written, id)
		previous = append(previous, prev)
		a.logger.Info("pack archived", "input", names[i], "pack_id", id, "entries", rec.EntryCount)
	}
	return nil
}

// rollback undoes the writes of putAll, newest first.
func (a *app) rollback(archive types.Archive, written []string, previous []*types.PackRecord) {
	for i := len(written) - 1; i >= 0; i-- {
		var err error
		if previous[i] != nil {
			_, err = archive.Put(previous[i])
		} else {
			err = archive.Delete(written[i])
		}
		if err != nil {
			a.logger.Error("rollback failed", "pack_id", written[i], "error", err)
			continue
		}
		a.logger.Warn("import rolled back", "pack_id", written[i])
	}
}

// decodeInputs reads and validates every input concurrently and returns
// their records in argument order.
func (a *app) decodeInputs(stdin io.Reader, names []string, state string) ([]*types.PackRecord, error) {
	recs := make([]*types.PackRecord, len(names))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			rec, err := a.decodeInput(stdin, name, state)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			recs[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return recs, nil
}

func (a *app) decodeInput(stdin io.Reader, name, state string) (*types.PackRecord, error) {
	data, err := readInput(stdin, name)
	if err != nil {
		return nil, userError(err)
	}
	data, err = decompressInput(data)
	if err != nil {
		return nil, userError(err)
	}

	p, err := pack.Deserialize(string(data), pack.WithLogger(a.logger))
	if err != nil {
		return nil, userError(fmt.Errorf("invalid pack: %w", err))
	}
	if state != "" {
		if err := p.SetMeta(types.MetaProcessState, state); err != nil {
			return nil, userError(err)
		}
	}
	if err := p.Index().UpdateLinkIndex(); err != nil {
		return nil, userError(fmt.Errorf("invalid pack: %w", err))
	}
	if err := p.Index().UpdateGroupIndex(); err != nil {
		return nil, userError(fmt.Errorf("invalid pack: %w", err))
	}

	rec, err := p.ToRecord()
	if err != nil {
		return nil, sysError(err)
	}
	return rec, nil
}

// readInput reads the named file, or stdin when name is "-".
func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}
