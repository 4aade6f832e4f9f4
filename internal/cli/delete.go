package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/annopack/pkg/types"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pack-id>",
		Short: "Remove a pack from the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.attach()
			if err != nil {
				return err
			}
			defer archive.Detach()

			if err := archive.Delete(args[0]); err != nil {
				if errors.Is(err, types.ErrNotFound) || errors.Is(err, types.ErrInvalidID) {
					return userError(fmt.Errorf("pack %q not found", args[0]))
				}
				return sysError(fmt.Errorf("delete pack: %w", err))
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
