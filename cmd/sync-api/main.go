package main

import (
	"context"
	"fmt"
	"os"

	"github.com/BearBump/OrderSync/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sync-api",
	Short: "Accepts storefront and tracker webhooks and queues them for the sync worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		closer, err := logging.Init("sync-api", verbose)
		if err != nil {
			return err
		}
		defer closer.Close()

		app, err := bootstrapSyncAPI(configPath)
		if err != nil {
			return err
		}
		defer app.Close()

		log.Info().Str("addr", app.opts.httpAddr).Str("topic", app.opts.topic).Msg("sync-api starting")
		if err := app.Run(); err != nil && err != context.Canceled {
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
