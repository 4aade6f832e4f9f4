// Package cli implements the annopack command-line interface: a small tool
// for archiving serialized packs and inspecting their entries and indexes.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/annopack/internal/paths"
	"github.com/mesh-intelligence/annopack/internal/sqlite"
	"github.com/mesh-intelligence/annopack/pkg/pack"
	"github.com/mesh-intelligence/annopack/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app carries the state shared by one command tree: flags, the loaded
// configuration and the logger built from it.
type app struct {
	flags     rootFlags
	configDir string
	config    types.Config
	logger    *slog.Logger
	stderr    io.Writer
}

// NewRootCmd creates the top-level "annopack" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{stderr: os.Stderr}

	root := &cobra.Command{
		Use:   "annopack",
		Short: "Archive and inspect annotated-document packs",
		Long: "annopack stores serialized packs in a local archive and answers\n" +
			"questions about their entries, links and groups.",
		Version: Version,
		// Errors are printed once by Execute.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "archive directory (env "+paths.EnvDataDir+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newImportCmd(a),
		newShowCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newDeleteCmd(a),
		newQueryCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes root with args and maps the returned error to an exit code.
func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintf(stderr, "annopack: %s\n", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// setup resolves directories, loads config.yaml and builds the logger.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return userError(fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err))
	}

	a.configDir = configDir
	a.config = cfg
	a.logger = newLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)
	return nil
}

// attach opens the archive described by the loaded config. The caller must
// defer Detach.
func (a *app) attach() (types.Archive, error) {
	archive := sqlite.NewBackend().WithLogger(a.logger)
	if err := archive.Attach(a.config); err != nil {
		return nil, sysError(fmt.Errorf("attach archive: %w", err))
	}
	return archive, nil
}

// lookup fetches a record by pack ID, or by document ID when byDoc is set.
func (a *app) lookup(archive types.Archive, ref string, byDoc bool) (*types.PackRecord, error) {
	var rec *types.PackRecord
	var err error
	if byDoc {
		rec, err = archive.GetByDocID(ref)
	} else {
		rec, err = archive.Get(ref)
	}
	switch {
	case errors.Is(err, types.ErrNotFound):
		return nil, userError(fmt.Errorf("pack %q not found", ref))
	case errors.Is(err, types.ErrInvalidID):
		return nil, userError(err)
	case err != nil:
		return nil, sysError(err)
	}
	return rec, nil
}

// loadPack fetches a record and reconstructs its pack.
func (a *app) loadPack(archive types.Archive, ref string, byDoc bool) (*types.PackRecord, *pack.Pack, error) {
	rec, err := a.lookup(archive, ref, byDoc)
	if err != nil {
		return nil, nil, err
	}
	p, err := pack.FromRecord(rec, pack.WithLogger(a.logger))
	if err != nil {
		return nil, nil, sysError(err)
	}
	return rec, p, nil
}

// exitError attaches an exit code to a command error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }

func sysError(err error) error { return &exitError{code: exitSysError, err: err} }
