package main

import (
	"context"
	"fmt"

	"github.com/aliciabus/alicia/pkg/ttsengine"
	"github.com/spf13/cobra"
)

var ttsCmd = &cobra.Command{
	Use:   "tts",
	Short: "Run the text-to-speech adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		backend, _ := cmd.Flags().GetString("backend")
		piperBinary, _ := cmd.Flags().GetString("piper-binary")
		piperModel, _ := cmd.Flags().GetString("piper-model")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		workers, _ := cmd.Flags().GetInt("workers")
		queueSize, _ := cmd.Flags().GetInt("queue-size")
		maxTextLen, _ := cmd.Flags().GetInt("max-text-length")

		voices := []string{"default"}

		var eng ttsengine.Engine
		switch backend {
		case "piper":
			eng = ttsengine.NewPiperEngine(piperBinary, piperModel, outputDir, voices)
		case "google":
			eng = ttsengine.NewGoogleEngine(voices)
		case "azure":
			eng = ttsengine.NewAzureEngine(voices)
		default:
			return fmt.Errorf("unknown tts backend %q (want piper, google, or azure)", backend)
		}

		orch := ttsengine.NewOrchestrator(eng, workers, queueSize, maxTextLen)
		ctx, cancel := context.WithCancel(context.Background())
		orch.Run(ctx)

		client, err := connectBus(context.Background(), "tts", broker, username, password)
		if err != nil {
			cancel()
			return err
		}
		if err := ttsengine.Wire(client, orch); err != nil {
			cancel()
			return fmt.Errorf("wire tts adapter: %w", err)
		}

		serveHTTP("tts", httpAddr, withHealth(client, ttsengine.Handler(orch)))
		serveMetrics("tts", metricsAddr)
		fmt.Printf("tts adapter online (%s) — broker %s, http %s\n", eng.Name(), broker, httpAddr)

		return waitForShutdown(client, cancel, orch.Stop)
	},
}

func init() {
	ttsCmd.Flags().String("backend", "piper", "TTS backend: piper, google, or azure")
	ttsCmd.Flags().String("piper-binary", "piper", "Path to the piper binary")
	ttsCmd.Flags().String("piper-model", "", "Path to the piper voice model")
	ttsCmd.Flags().String("output-dir", "./data/tts/audio", "Directory for synthesized audio files")
	ttsCmd.Flags().Int("workers", 2, "Synthesis worker pool size")
	ttsCmd.Flags().Int("queue-size", 32, "Synthesis job queue depth")
	ttsCmd.Flags().Int("max-text-length", 1000, "Maximum input text length before truncation")
}
