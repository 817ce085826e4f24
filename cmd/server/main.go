package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/drawsync/internal/app"
	"github.com/vovakirdan/drawsync/internal/config"
	"github.com/vovakirdan/drawsync/internal/log"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
		origin     string
		mdns       bool
	)

	root := &cobra.Command{
		Use:           "drawsync",
		Short:         "Real-time collaborative drawing server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap := log.New("info", "console")
			cfg, path, err := config.Load(bootstrap, configPath)
			if err != nil {
				bootstrap.Error().Err(err).Msg("load config")
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("origin") {
				cfg.ClientOrigin = origin
			}
			if flags.Changed("mdns") {
				cfg.MDNSEnabled = mdns
			}

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("version", version).Msg("starting drawsync server")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.New(cfg, logger).Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := root.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	flags.StringVar(&addr, "addr", "", "HTTP listen address")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&origin, "origin", "", "allowed browser origin, * for any")
	flags.BoolVar(&mdns, "mdns", false, "advertise the server over mDNS")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	root.SetContext(context.Background())
	return root
}
