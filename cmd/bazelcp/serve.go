package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"bazelcp/internal/core/app"
	"bazelcp/internal/shared/observability"

	"github.com/spf13/cobra"
)

type serveOptions struct {
	metricsAddress string
	watch          bool
	warm           bool
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{watch: true}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep classpaths warm and invalidate them as BUILD files change",
		Long: `Run until interrupted: watch the workspace for BUILD file edits, expose
/metrics and /health, and export traces when an OTLP endpoint is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddress, "metrics-address", "", "Listen address for /metrics and /health (overrides config)")
	cmd.Flags().BoolVar(&opts.watch, "watch", opts.watch, "Invalidate cached classpaths when BUILD files change")
	cmd.Flags().BoolVar(&opts.warm, "warm", false, "Resolve every unit once at startup")
	return cmd
}

func runServe(cmd *cobra.Command, root *rootOptions, opts *serveOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := root.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	obs := a.Config.Observability
	shutdownTracing, err := observability.SetupTracing(ctx, obs.OTLPEndpoint, obs.ServiceName)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("trace exporter shutdown failed", "error", err)
		}
	}()

	addr := obs.MetricsAddress
	if opts.metricsAddress != "" {
		addr = opts.metricsAddress
	}
	if addr != "" {
		server := observability.NewServer(addr, app.NewHealthService(a))
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(stopCtx); err != nil {
				slog.Warn("observability server shutdown failed", "error", err)
			}
		}()
	}

	if opts.watch {
		if err := a.StartWatcher(); err != nil {
			return err
		}
		slog.Info("watching workspace", "root", a.Paths.WorkspaceRoot)
	}

	if opts.warm {
		results := a.ResolveAll(ctx, nil)
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		slog.Info("warmed classpaths", "units", len(results), "failed", failed)
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}
