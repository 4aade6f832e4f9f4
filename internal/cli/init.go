package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/annopack/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the pack archive",
		Long:  "Create the configuration and archive directories, write a default\nconfig.yaml if none exists, then initialize the archive files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			written, err := writeConfigIfMissing(a.configDir, a.config.DataDir)
			if err != nil {
				return sysError(fmt.Errorf("write config: %w", err))
			}

			// Attach creates the data directory and empty JSONL files.
			archive, err := a.attach()
			if err != nil {
				return err
			}
			if err := archive.Detach(); err != nil {
				return sysError(fmt.Errorf("finalize archive: %w", err))
			}

			a.logger.Info("archive initialized", "data_dir", a.config.DataDir, "config_written", written)
			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(out, map[string]any{
					"config_file":    paths.ConfigFile(a.configDir),
					"config_written": written,
					"data_dir":       a.config.DataDir,
				})
			}
			fmt.Fprintf(out, "Archive initialized in %s\n", a.config.DataDir)
			if written {
				fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(a.configDir))
			}
			return nil
		},
	}
}
