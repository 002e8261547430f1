package aiengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes the orchestrator to voice/ai/request and, for the
// STT->AI pipeline, voice/stt/response — a completed transcript
// auto-enqueues an AI completion job, reusing the incoming envelope's
// session_id unchanged.
func Wire(client *bus.Client, orch *Orchestrator) error {
	if err := client.Subscribe(bus.TopicVoiceAIRequest, func(ctx context.Context, env *types.Envelope) {
		handleRequest(ctx, client, orch, env, "prompt")
	}); err != nil {
		return err
	}
	return client.Subscribe(bus.TopicVoiceSTTResponse, func(ctx context.Context, env *types.Envelope) {
		handleRequest(ctx, client, orch, env, "text")
	})
}

func handleRequest(ctx context.Context, client *bus.Client, orch *Orchestrator, env *types.Envelope, promptField string) {
	prompt, _ := env.Payload[promptField].(string)
	if prompt == "" {
		return
	}
	sessionID, _ := env.Payload["session_id"].(string)

	result := orch.Complete(ctx, prompt)

	payload := map[string]any{
		"session_id":  sessionID,
		"success":     result.Success,
		"response":    result.Response,
		"tokens_used": result.TokensUsed,
		"model":       result.Model,
		"ai_time_ms":  result.AITimeMs,
	}

	topic := bus.TopicVoiceAIResponse
	if !result.Success {
		payload["error"] = result.Error
		topic = bus.TopicVoiceAIError
	}

	if err := client.Publish(ctx, topic, payload, bus.PublishOptions{
		Destination: env.Source, MessageType: types.MessageTypeResponse,
	}); err != nil {
		log.WithComponent("aiengine").Error().Err(err).Msg("publish ai response failed")
	}
}
