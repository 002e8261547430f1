package main

import (
	"context"
	"fmt"

	"github.com/aliciabus/alicia/pkg/loadbalancer"
	"github.com/spf13/cobra"
)

var loadbalancerCmd = &cobra.Command{
	Use:   "loadbalancer",
	Short: "Run the load balancer",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)

		registry := loadbalancer.NewRegistry()

		client, err := connectBus(context.Background(), "loadbalancer", broker, username, password)
		if err != nil {
			return err
		}
		if err := loadbalancer.Wire(client, registry); err != nil {
			return fmt.Errorf("wire load balancer: %w", err)
		}

		serveHTTP("loadbalancer", httpAddr, withHealth(client, loadbalancer.Handler(registry)))
		serveMetrics("loadbalancer", metricsAddr)
		fmt.Printf("load balancer online — broker %s, http %s\n", broker, httpAddr)

		return waitForShutdown(client)
	},
}
