package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		byDoc    bool
		output   string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "export <pack-id>",
		Short: "Write the serialized form of an archived pack",
		Long: `Export writes the serialized pack to stdout or a file. With --xz the
output is an xz stream that import reads back directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, err := a.attach()
			if err != nil {
				return err
			}
			defer archive.Detach()

			// Re-serializing through the pack validates the stored payload.
			_, p, err := a.loadPack(archive, args[0], byDoc)
			if err != nil {
				return err
			}
			payload, err := p.Serialize()
			if err != nil {
				return sysError(err)
			}

			var buf bytes.Buffer
			if compress {
				if err := writeXZ(&buf, []byte(payload)); err != nil {
					return sysError(err)
				}
			} else {
				buf.WriteString(payload)
				buf.WriteByte('\n')
			}

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return sysError(fmt.Errorf("write %s: %w", output, err))
			}
			a.logger.Info("pack exported", "file", output, "xz", compress)
			return nil
		},
	}

	cmd.Flags().BoolVar(&byDoc, "doc", false, "treat the argument as a document ID")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&compress, "xz", false, "compress the output with xz")
	return cmd
}
