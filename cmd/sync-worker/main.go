package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/OrderSync/config"
	"github.com/BearBump/OrderSync/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sync-worker",
	Short: "Consumes queued webhooks and keeps tracker tickets in step with orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := logging.Init("sync-worker", verbose)
		if err != nil {
			return err
		}
		defer closer.Close()

		if configPath == "" {
			return fmt.Errorf("--config or configPath env var is required")
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		log.Info().Strs("stores", cfg.StoreIDs()).Str("topic", cfg.Kafka.TopicName()).Msg("sync-worker starting")
		if err := RunSyncWorker(ctx, cfg, defaultWorkerFactories()); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("configPath"), "path to the YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
