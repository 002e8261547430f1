package discovery

import (
	"context"
	"time"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes client to the register/unregister topics and feeds the
// registry. Discovery emits no messages of its own — it is a pure
// consumer of the rest of the system's announcements.
func Wire(client *bus.Client, registry *Registry) error {
	if err := client.Subscribe(bus.TopicDiscoveryRegister, func(_ context.Context, env *types.Envelope) {
		handleRegister(registry, env)
	}); err != nil {
		return err
	}
	return client.Subscribe(bus.TopicDiscoveryUnregister, func(_ context.Context, env *types.Envelope) {
		handleUnregister(registry, env)
	})
}

func handleRegister(registry *Registry, env *types.Envelope) {
	name, _ := env.Payload["service"].(string)
	if name == "" {
		return
	}

	if _, ok := registry.Get(name); ok {
		registry.Touch(name)
		return
	}

	desc := &types.ServiceDescriptor{
		Name:     name,
		Version:  stringField(env.Payload, "version"),
		Status:   types.ServiceStatusOnline,
		LastSeen: time.Now(),
		Metadata: map[string]string{},
	}
	if caps, ok := env.Payload["capabilities"].([]any); ok {
		for _, c := range caps {
			if s, ok := c.(string); ok {
				desc.Capabilities = append(desc.Capabilities, s)
			}
		}
	}
	if endpoints, ok := env.Payload["endpoints"].(map[string]any); ok {
		desc.Endpoints = make(map[string]string, len(endpoints))
		for k, v := range endpoints {
			if s, ok := v.(string); ok {
				desc.Endpoints[k] = s
			}
		}
	}

	registry.Register(desc)
	log.WithComponent("discovery").Info().Str("service", name).Msg("service registered")
}

func handleUnregister(registry *Registry, env *types.Envelope) {
	name, _ := env.Payload["service"].(string)
	if name == "" {
		return
	}
	registry.Unregister(name)
	log.WithComponent("discovery").Info().Str("service", name).Msg("service unregistered")
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

// SweepLoop periodically calls registry.Sweep until ctx is done, marking
// services that stopped heartbeating without a clean unregister offline.
func SweepLoop(ctx context.Context, registry *Registry, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			registry.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
