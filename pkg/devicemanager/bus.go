package devicemanager

import (
	"context"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes the device manager to every device's status and
// response topics (via the devices/+/status and devices/+/response
// wildcards). Capability call topics are subscribed separately through
// WireCapability.
func Wire(client *bus.Client, manager *Manager, registry *Registry) error {
	if err := client.Subscribe(bus.TopicDevicesPrefix+"+/status", func(ctx context.Context, env *types.Envelope) {
		handleStatus(registry, env)
	}); err != nil {
		return err
	}
	return client.Subscribe(bus.TopicDevicesPrefix+"+/response", func(ctx context.Context, env *types.Envelope) {
		handleResponse(manager, env)
	})
}

// WireCapability subscribes a capability's call topic, translating
// each request into a fan-out command against the capability's
// current member set.
func WireCapability(client *bus.Client, manager *Manager, capability string) error {
	return client.Subscribe(bus.CapabilityTopic(capability), func(ctx context.Context, env *types.Envelope) {
		command, _ := env.Payload["command"].(string)
		parameters, _ := env.Payload["parameters"].(map[string]any)
		priority := types.PriorityNormal
		if p, ok := env.Payload["priority"].(string); ok && p != "" {
			priority = types.Priority(p)
		}
		manager.SendCapabilityCommand(capability, command, parameters, priority)
	})
}

// handleStatus and handleResponse identify the originating device by
// the envelope's source field: a device publishing on its own status
// or response topic sets source to its own device_id.
func handleStatus(registry *Registry, env *types.Envelope) {
	if env.Source == "" {
		return
	}
	registry.Touch(env.Source, env.Payload)
}

func handleResponse(manager *Manager, env *types.Envelope) {
	if env.Source == "" {
		return
	}
	correlationID, _ := env.Payload["correlation_id"].(string)
	if correlationID == "" {
		return
	}
	manager.HandleResponse(env.Source, correlationID, env.Payload["response"])
}
