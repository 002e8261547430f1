package config

import (
	"context"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes client to config/request and config/global/request,
// answering on the requester's response topic.
func Wire(client *bus.Client, store *Store) error {
	if err := client.Subscribe(bus.TopicConfigRequest, func(ctx context.Context, env *types.Envelope) {
		handleRequest(ctx, client, store, env)
	}); err != nil {
		return err
	}
	return client.Subscribe(bus.TopicConfigGlobalRequest, func(ctx context.Context, env *types.Envelope) {
		handleGlobalRequest(ctx, client, store, env)
	})
}

func handleRequest(ctx context.Context, client *bus.Client, store *Store, env *types.Envelope) {
	service, _ := env.Payload["service"].(string)
	cfg := store.Get(service)
	publishResponse(ctx, client, env, cfg)
}

func handleGlobalRequest(ctx context.Context, client *bus.Client, store *Store, env *types.Envelope) {
	cfg := store.Get("")
	publishResponse(ctx, client, env, cfg)
}

func publishResponse(ctx context.Context, client *bus.Client, env *types.Envelope, cfg map[string]any) {
	payload := map[string]any{
		"correlation_id": env.MessageID,
		"config":         cfg,
	}
	topic := bus.ConfigResponseTopic(env.Source)
	if err := client.Publish(ctx, topic, payload, bus.PublishOptions{
		Destination: env.Source, MessageType: types.MessageTypeResponse,
	}); err != nil {
		log.WithComponent("config").Error().Err(err).Str("topic", topic).Msg("publish config response failed")
	}
}

// PublishServiceUpdate pushes service's merged configuration to its
// update topic, for services to apply as it arrives.
func PublishServiceUpdate(ctx context.Context, client *bus.Client, store *Store, service string) error {
	cfg := store.Get(service)
	return client.Publish(ctx, bus.ConfigUpdateTopic(service), map[string]any{
		"service": service,
		"config":  cfg,
	}, bus.PublishOptions{Destination: service, MessageType: types.MessageTypeEvent})
}

// PublishGlobalUpdate pushes the global configuration to its update
// topic.
func PublishGlobalUpdate(ctx context.Context, client *bus.Client, store *Store) error {
	cfg := store.Get("")
	return client.Publish(ctx, bus.ConfigUpdateTopic("global"), map[string]any{
		"config": cfg,
	}, bus.PublishOptions{Destination: "broadcast", MessageType: types.MessageTypeEvent})
}
