package sttengine

import (
	"context"
	"encoding/base64"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes the orchestrator to voice/stt/request. A request's
// audio travels as base64 bytes or a URL in the payload; its
// session_id is carried unchanged into the response so the AI stage
// can correlate it.
func Wire(client *bus.Client, orch *Orchestrator) error {
	return client.Subscribe(bus.TopicVoiceSTTRequest, func(ctx context.Context, env *types.Envelope) {
		handleRequest(ctx, client, orch, env)
	})
}

func handleRequest(ctx context.Context, client *bus.Client, orch *Orchestrator, env *types.Envelope) {
	sessionID, _ := env.Payload["session_id"].(string)

	var job Job
	if encoded, ok := env.Payload["audio_base64"].(string); ok && encoded != "" {
		if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
			job.Audio = decoded
		}
	}
	if url, ok := env.Payload["audio_url"].(string); ok {
		job.URL = url
	}

	result := orch.Transcribe(ctx, job)

	payload := map[string]any{
		"session_id":  sessionID,
		"success":     result.Success,
		"text":        result.Text,
		"language":    result.Language,
		"confidence":  result.Confidence,
		"stt_time_ms": result.STTTimeMs,
		"engine":      result.Engine,
	}

	topic := bus.TopicVoiceSTTResponse
	if !result.Success {
		payload["error"] = result.Error
		topic = bus.TopicVoiceSTTError
	}

	if err := client.Publish(ctx, topic, payload, bus.PublishOptions{
		Destination: env.Source, MessageType: types.MessageTypeResponse,
	}); err != nil {
		log.WithComponent("sttengine").Error().Err(err).Msg("publish stt response failed")
	}
}
