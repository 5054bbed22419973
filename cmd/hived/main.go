// Command hived runs the hive broker as a standalone hub process: it binds
// the broker, publishes the discovery sidecar, and blocks until it receives
// a shutdown signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/danielstarman/hive/internal/broker"
	"github.com/danielstarman/hive/internal/config"
	"github.com/danielstarman/hive/public/hub"
)

func newRootCmd() *cobra.Command {
	var configPath string
	var debug bool

	root := &cobra.Command{
		Use:   "hived",
		Short: "hived runs the hive agent coordination broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, debug)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to hived.yaml (optional; built-in defaults are used if absent)")
	root.Flags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	return root
}

func run(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("hived: %w", err)
	}

	level := zerolog.InfoLevel
	if debug || cfg.Debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	brokerCfg := broker.Config{
		HeartbeatTick:    cfg.HeartbeatTick(),
		HeartbeatTimeout: cfg.HeartbeatTimeout(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h, err := hub.Start(ctx, brokerCfg, logger)
	if err != nil {
		return fmt.Errorf("hived: %w", err)
	}

	logger.Info().Str("broker_url", h.BrokerURL()).Msg("hived ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("hived shutting down")
	if err := h.Close(); err != nil {
		return fmt.Errorf("hived: shutdown: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
