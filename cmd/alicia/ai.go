package main

import (
	"context"
	"fmt"

	"github.com/aliciabus/alicia/pkg/aiengine"
	"github.com/spf13/cobra"
)

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Run the AI completion adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		model, _ := cmd.Flags().GetString("model")
		tier, _ := cmd.Flags().GetString("tier")
		workers, _ := cmd.Flags().GetInt("workers")
		queueSize, _ := cmd.Flags().GetInt("queue-size")

		limits := aiengine.SmallLimits
		if tier == "reference" {
			limits = aiengine.ReferenceLimits
		}

		eng := aiengine.NewCloudEngine(model)
		orch := aiengine.NewOrchestrator(eng, limits, workers, queueSize)
		ctx, cancel := context.WithCancel(context.Background())
		orch.Run(ctx)

		client, err := connectBus(context.Background(), "ai", broker, username, password)
		if err != nil {
			cancel()
			return err
		}
		if err := aiengine.Wire(client, orch); err != nil {
			cancel()
			return fmt.Errorf("wire ai adapter: %w", err)
		}

		serveHTTP("ai", httpAddr, withHealth(client, aiengine.Handler(orch)))
		serveMetrics("ai", metricsAddr)
		fmt.Printf("ai adapter online (%s, %s tier) — broker %s, http %s\n", model, tier, broker, httpAddr)

		return waitForShutdown(client, cancel, orch.Stop)
	},
}

func init() {
	aiCmd.Flags().String("model", "default", "Model name reported in completions")
	aiCmd.Flags().String("tier", "small", "Rate-limit tier: small or reference")
	aiCmd.Flags().Int("workers", 2, "Completion worker pool size")
	aiCmd.Flags().Int("queue-size", 32, "Completion job queue depth")
}
