package main

import (
	"context"
	"fmt"

	"github.com/aliciabus/alicia/pkg/health"
	"github.com/aliciabus/alicia/pkg/healthmonitor"
	"github.com/spf13/cobra"
)

var healthmonitorCmd = &cobra.Command{
	Use:   "healthmonitor",
	Short: "Run the system health monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, _, httpAddr, metricsAddr := persistentFlags(cmd)
		probes, _ := cmd.Flags().GetStringToString("probe")

		monitor := healthmonitor.New()
		cfg := health.DefaultConfig()
		for name, url := range probes {
			monitor.Register(name, health.NewHTTPChecker(url), cfg)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go monitor.Run(ctx)

		serveHTTP("healthmonitor", httpAddr, healthmonitor.Handler(monitor))
		serveMetrics("healthmonitor", metricsAddr)
		fmt.Printf("health monitor online — probing %d service(s), http %s\n", len(probes), httpAddr)

		waitForSignal()
		cancel()
		return nil
	},
}

func init() {
	healthmonitorCmd.Flags().StringToString("probe", map[string]string{}, "Service health probes as name=http_url")
}
