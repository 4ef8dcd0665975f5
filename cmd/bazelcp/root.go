package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"bazelcp/internal/core/app"
	"bazelcp/internal/core/config"
	"bazelcp/internal/shared/execx"

	"github.com/spf13/cobra"
)

// version is set via build-time ldflags
var version = "dev"

// buildDate is set via build-time ldflags
var buildDate = "unknown"

// commit is set via build-time ldflags
var commit = "unknown"

type rootOptions struct {
	configPath string
	verbose    bool
	// executor replaces the bazel binary; nil runs the real one.
	executor execx.Executor
}

func newRootCommand(executor execx.Executor) *cobra.Command {
	opts := &rootOptions{executor: executor}

	cmd := &cobra.Command{
		Use:   "bazelcp",
		Short: "Resolve Java classpaths of Bazel build units",
		Long: `bazelcp computes the compile and test classpath of build units in a Bazel
workspace from aspect metadata, and orders units so dependencies come first.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.Annotations = map[string]string{
		"buildDate": buildDate,
		"commit":    commit,
	}
	cmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
Build date: {{printf "%s" (index .Annotations "buildDate")}}
Commit: {{printf "%s" (index .Annotations "commit")}}
`)

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigFile, "Path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newResolveCommand(opts),
		newOrderCommand(opts),
		newGraphCommand(opts),
		newMetadataCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// loadConfig reads the config file. A missing default file yields the
// default configuration so the tool works in a bare workspace.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && o.configPath == config.DefaultConfigFile {
		slog.Debug("no config file, using defaults", "path", o.configPath)
		return config.DefaultConfig(), nil
	}
	return nil, err
}

func (o *rootOptions) openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, paths, o.executor)
}
