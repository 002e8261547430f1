package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aliciabus/alicia/pkg/discovery"
	"github.com/spf13/cobra"
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Run the service discovery directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		staleAge, _ := cmd.Flags().GetDuration("stale-age")
		sweepInterval, _ := cmd.Flags().GetDuration("sweep-interval")

		registry := discovery.NewRegistry(staleAge)

		client, err := connectBus(context.Background(), "discovery", broker, username, password)
		if err != nil {
			return err
		}
		if err := discovery.Wire(client, registry); err != nil {
			return fmt.Errorf("wire discovery registry: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go discovery.SweepLoop(ctx, registry, sweepInterval)

		serveHTTP("discovery", httpAddr, withHealth(client, discovery.Handler(registry)))
		serveMetrics("discovery", metricsAddr)
		fmt.Printf("discovery directory online — broker %s, http %s\n", broker, httpAddr)

		return waitForShutdown(client, cancel)
	},
}

func init() {
	discoveryCmd.Flags().Duration("stale-age", 2*time.Minute, "Time without a heartbeat before a service is marked stale")
	discoveryCmd.Flags().Duration("sweep-interval", 30*time.Second, "Staleness sweep interval")
}
