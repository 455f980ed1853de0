package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wsrelay/internal/app"
	"github.com/vovakirdan/wsrelay/internal/config"
	"github.com/vovakirdan/wsrelay/internal/log"
)

type flags struct {
	configPath      string
	addr            string
	logLevel        string
	logFile         string
	shutdownTimeout time.Duration
}

func main() {
	if err := newRootCmd(&flags{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wsrelay",
		Short:         "WebSocket relay",
		Long:          "Relays every message a WebSocket client sends to all other connected clients.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVarP(&f.addr, "addr", "a", "", "listen address (default :8001)")
	cmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&f.logFile, "log-file", "", "log file path, or \"console\"")
	cmd.PersistentFlags().DurationVar(&f.shutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := log.New(f.logLevel, "")
	cfg, path, err := config.Load(bootLog, f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyFlags(cmd, f, &cfg); err != nil {
		return err
	}

	logger := log.New(cfg.LogLevel, cfg.LogFile)
	logger.Info().Str("config", path).Str("addr", cfg.Addr).Msg("starting relay")

	if err := app.New(&cfg, logger).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// applyFlags overrides cfg with the flags given on the command line and
// validates the result.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("addr") {
		cfg.Addr = f.addr
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if fs.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout = f.shutdownTimeout
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
