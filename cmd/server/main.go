package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomrelay/internal/app"
	"github.com/vovakirdan/roomrelay/internal/config"
	applog "github.com/vovakirdan/roomrelay/internal/log"
	"github.com/vovakirdan/roomrelay/internal/proto"
)

var version = "dev"

type serveFlags struct {
	configPath        string
	addr              string
	environment       string
	logLevel          string
	staticDir         string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "roomrelay",
		Short:        "Room based WebRTC signaling and media relay server",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newVersionCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, ws and stream server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to config file (created with defaults if missing)")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&flags.environment, "environment", "", "deployment environment (development, production)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.staticDir, "static-dir", "", "directory with the browser client")
	cmd.Flags().DurationVar(&flags.readHeaderTimeout, "read-header-timeout", 0, "HTTP read header timeout")
	cmd.Flags().DurationVar(&flags.shutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server and protocol version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "roomrelay %s (protocol %d)\n", version, proto.ProtocolVersion)
		},
	}
}

func serve(parent context.Context, flags serveFlags) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := applog.New("info", "development")
	cfg, path, err := config.Load(bootLog, flags.configPath)
	if err != nil {
		return err
	}
	cfg.UpdateFrom(config.Config{
		Addr:              flags.addr,
		Environment:       flags.environment,
		LogLevel:          flags.logLevel,
		StaticDir:         flags.staticDir,
		ReadHeaderTimeout: flags.readHeaderTimeout,
		ShutdownTimeout:   flags.shutdownTimeout,
	})

	logger := applog.New(cfg.LogLevel, cfg.Environment)
	logger.Info().
		Str("config", path).
		Str("addr", cfg.Addr).
		Str("environment", cfg.Environment).
		Str("version", version).
		Msg("starting roomrelay")

	if err := app.New(&cfg, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
