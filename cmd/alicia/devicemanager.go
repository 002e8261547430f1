package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aliciabus/alicia/pkg/devicemanager"
	"github.com/spf13/cobra"
)

var devicemanagerCmd = &cobra.Command{
	Use:   "devicemanager",
	Short: "Run the device manager",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		sweepInterval, _ := cmd.Flags().GetDuration("sweep-interval")

		registry := devicemanager.NewRegistry()

		client, err := connectBus(context.Background(), "devicemanager", broker, username, password)
		if err != nil {
			return err
		}
		manager := devicemanager.NewManager(client, registry)

		if err := devicemanager.Wire(client, manager, registry); err != nil {
			return fmt.Errorf("wire device manager: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		go manager.Run(ctx)
		go devicemanager.SweepLoop(ctx, registry, sweepInterval)

		serveHTTP("devicemanager", httpAddr, withHealth(client, devicemanager.Handler(manager, registry)))
		serveMetrics("devicemanager", metricsAddr)
		fmt.Printf("device manager online — broker %s, http %s\n", broker, httpAddr)

		return waitForShutdown(client, cancel)
	},
}

func init() {
	devicemanagerCmd.Flags().Duration("sweep-interval", time.Minute, "Offline-device sweep interval")
}
