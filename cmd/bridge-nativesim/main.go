package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sekia-ai/nativebridge/internal/simulator"
)

var version = "dev"

func main() {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "bridge-nativesim",
		Short: "Simulated native TTS, bridge and store plugins for off-device development",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(
				zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
			).With().Timestamp().Logger()

			fc, err := simulator.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			sim, err := simulator.Start(fc.Config(version, logger), logger)
			if err != nil {
				return err
			}
			defer sim.Close()

			logger.Info().
				Str("platform", fc.Simulator.Platform).
				Str("nats", fc.NATS.URL).
				Msg("native plugins running")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			sig := <-sigCh
			logger.Info().Str("signal", sig.String()).Msg("shutting down")
			return nil
		},
	}

	rootCmd.Version = version
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
