package ttsengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes the orchestrator to voice/tts/request and, for the
// STT->AI->TTS pipeline, voice/ai/response — an AI reply auto-enqueues
// a TTS job for its output text, reusing the incoming envelope's
// session_id unchanged.
func Wire(client *bus.Client, orch *Orchestrator) error {
	if err := client.Subscribe(bus.TopicVoiceTTSRequest, func(ctx context.Context, env *types.Envelope) {
		handleRequest(ctx, client, orch, env)
	}); err != nil {
		return err
	}
	return client.Subscribe(bus.TopicVoiceAIResponse, func(ctx context.Context, env *types.Envelope) {
		handleAIResponse(ctx, client, orch, env)
	})
}

func handleRequest(ctx context.Context, client *bus.Client, orch *Orchestrator, env *types.Envelope) {
	text, _ := env.Payload["text"].(string)
	voice, _ := env.Payload["voice"].(string)
	sessionID, _ := env.Payload["session_id"].(string)
	synthesizeAndRespond(ctx, client, orch, env.Source, sessionID, text, voice)
}

func handleAIResponse(ctx context.Context, client *bus.Client, orch *Orchestrator, env *types.Envelope) {
	text, _ := env.Payload["response"].(string)
	if text == "" {
		return
	}
	sessionID, _ := env.Payload["session_id"].(string)
	synthesizeAndRespond(ctx, client, orch, env.Source, sessionID, text, "")
}

func synthesizeAndRespond(ctx context.Context, client *bus.Client, orch *Orchestrator, destination, sessionID, text, voice string) {
	result := orch.Synthesize(ctx, text, voice)

	payload := map[string]any{
		"session_id":      sessionID,
		"success":         result.Success,
		"audio_path":      result.AudioPath,
		"engine":          result.Engine,
		"processing_time": result.ProcessingTime,
	}

	topic := bus.TopicVoiceTTSResponse
	if !result.Success {
		payload["error"] = result.Error
		topic = bus.TopicVoiceTTSError
	}

	if err := client.Publish(ctx, topic, payload, bus.PublishOptions{
		Destination: destination, MessageType: types.MessageTypeResponse,
	}); err != nil {
		log.WithComponent("ttsengine").Error().Err(err).Msg("publish tts response failed")
	}
}
