package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aliciabus/alicia/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Run the configuration service",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		dataDir, _ := cmd.Flags().GetString("data-dir")

		dir, err := config.NewDir(dataDir)
		if err != nil {
			return fmt.Errorf("open config directory: %w", err)
		}
		store := config.NewStore(dir)
		if err := store.Load(); err != nil {
			return fmt.Errorf("load config store: %w", err)
		}

		client, err := connectBus(context.Background(), "config", broker, username, password)
		if err != nil {
			return err
		}
		if err := config.Wire(client, store); err != nil {
			return fmt.Errorf("wire config service: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					store.PurgeOldHistory()
				}
			}
		}()

		serveHTTP("config", httpAddr, withHealth(client, config.Handler(store, client)))
		serveMetrics("config", metricsAddr)
		fmt.Printf("config service online — broker %s, http %s\n", broker, httpAddr)

		return waitForShutdown(client, cancel)
	},
}

func init() {
	configCmd.Flags().String("data-dir", "./data/config", "Configuration store directory")
}
