package main

import (
	"context"
	"fmt"

	"github.com/aliciabus/alicia/pkg/sttengine"
	"github.com/spf13/cobra"
)

var sttCmd = &cobra.Command{
	Use:   "stt",
	Short: "Run the speech-to-text adapter",
	RunE: func(cmd *cobra.Command, args []string) error {
		broker, username, password, httpAddr, metricsAddr := persistentFlags(cmd)
		backend, _ := cmd.Flags().GetString("backend")
		whisperBinary, _ := cmd.Flags().GetString("whisper-binary")
		whisperModel, _ := cmd.Flags().GetString("whisper-model")
		scratchDir, _ := cmd.Flags().GetString("scratch-dir")
		language, _ := cmd.Flags().GetString("language")
		workers, _ := cmd.Flags().GetInt("workers")
		queueSize, _ := cmd.Flags().GetInt("queue-size")

		var eng sttengine.Engine
		switch backend {
		case "whisper":
			eng = sttengine.NewWhisperEngine(whisperBinary, whisperModel, scratchDir, language)
		case "google":
			eng = sttengine.NewGoogleEngine()
		case "azure":
			eng = sttengine.NewAzureEngine()
		default:
			return fmt.Errorf("unknown stt backend %q (want whisper, google, or azure)", backend)
		}

		orch := sttengine.NewOrchestrator(eng, workers, queueSize)
		ctx, cancel := context.WithCancel(context.Background())
		orch.Run(ctx)

		client, err := connectBus(context.Background(), "stt", broker, username, password)
		if err != nil {
			cancel()
			return err
		}
		if err := sttengine.Wire(client, orch); err != nil {
			cancel()
			return fmt.Errorf("wire stt adapter: %w", err)
		}

		serveHTTP("stt", httpAddr, withHealth(client, sttengine.Handler(orch)))
		serveMetrics("stt", metricsAddr)
		fmt.Printf("stt adapter online (%s) — broker %s, http %s\n", eng.Name(), broker, httpAddr)

		return waitForShutdown(client, cancel, orch.Stop)
	},
}

func init() {
	sttCmd.Flags().String("backend", "whisper", "STT backend: whisper, google, or azure")
	sttCmd.Flags().String("whisper-binary", "whisper", "Path to the whisper.cpp binary")
	sttCmd.Flags().String("whisper-model", "", "Path to the whisper model")
	sttCmd.Flags().String("scratch-dir", "./data/stt/scratch", "Scratch directory for incoming audio")
	sttCmd.Flags().String("language", "en", "Transcription language hint")
	sttCmd.Flags().Int("workers", 2, "Transcription worker pool size")
	sttCmd.Flags().Int("queue-size", 32, "Transcription job queue depth")
}
