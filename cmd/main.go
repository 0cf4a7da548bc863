// Package cmd implements the easymake command line interface
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/JulianFerry/easymake/pkg"
	"github.com/JulianFerry/easymake/pkg/config"
	"github.com/JulianFerry/easymake/pkg/dispatch"
	"github.com/JulianFerry/easymake/pkg/hclscript"
	"github.com/JulianFerry/easymake/pkg/logctx"
	"github.com/JulianFerry/easymake/pkg/shell"
	"github.com/JulianFerry/easymake/pkg/starscript"
	"github.com/JulianFerry/easymake/pkg/targets"
	"github.com/JulianFerry/easymake/pkg/vars"
	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootCmd loads the target script and runs the targets named on the command line
var RootCmd = &cobra.Command{
	Use:   "easymake [targets...] [name=value...] [-flags] [args...]",
	Short: "Minimal build and task runner",
	Long: `This command loads the first Makefile.star file it finds and runs the given targets.

Arguments are matched against the targets declared in the script:
  name=value  sets the parameter "name" of each target (JSON values are decoded)
  -abc        sets the parameters "a", "b" and "c" to True
  -verbose    sets the parameter "verbose" to True
Without any target name the first target of the script runs.

Set file = "Makefile.hcl" (or EASYMAKE_FILE) to load declarative HCL targets instead.
Settings are read from easymake.toml and EASYMAKE_* environment variables.`,
	// every argument belongs to the targets
	DisableFlagParsing: true,
	SilenceUsage:       true,
	// Execute reports the error
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		setErrorMarshaler(cfg.Debug)
		logger, closer, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		ctx = logctx.WithLogger(ctx, &logger)

		wd, err := os.Getwd()
		if err != nil {
			return eris.Wrap(err, "failed to retrieve the current working directory")
		}

		scriptPath, err := pkg.FindScript(wd, cfg.File)
		if err != nil {
			return eris.Wrap(err, "failed to find the target script")
		}

		store := vars.New(logger)
		executor := shell.NewExecutor(store, shell.WithDryRun(cfg.DryRun))
		registry, err := loadTargets(ctx, scriptPath, executor)
		if err != nil {
			return eris.Wrap(err, "failed to load targets")
		}

		if wantsHelp(args) {
			fmt.Fprintln(cmd.OutOrStdout(), cmd.Long)
			fmt.Fprintln(cmd.OutOrStdout())
			pkg.PrintTargets(cmd.OutOrStdout(), registry)
			return nil
		}

		// log output goes to unbuffered files, nothing is lost when RunAll exits
		dispatch.RunAll(ctx, registry, args)
		return nil
	},
}

// loadTargets picks the loader by file extension. Anything but .hcl is treated as Starlark.
func loadTargets(ctx context.Context, path string, executor *shell.Executor) (*targets.Registry, error) {
	if filepath.Ext(path) == ".hcl" {
		return hclscript.Load(ctx, path, executor)
	}
	return starscript.Load(ctx, path, executor)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newLogger(cfg *config.Config) (zerolog.Logger, io.Closer, error) {
	var out io.Writer = NewConsoleWriter(os.Stderr, cfg.Debug)
	var closer io.Closer = nopCloser{}

	if cfg.Log.JSON {
		out = os.Stderr
	}

	if cfg.Log.File != "" {
		logFile, err := os.Create(cfg.Log.File)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		out = logFile
		closer = logFile
	}

	logger := zerolog.New(out).
		Level(cfg.LogLevel()).
		With().
		Str("run", nanoid.New()).
		Logger()
	return logger, closer, nil
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "--help" {
			return true
		}
	}
	return false
}

// Execute runs RootCmd and exits with status 1 if it fails before any target ran
func Execute() {
	cobra.CheckErr(RootCmd.Execute())
}
