package loadbalancer

import (
	"context"
	"fmt"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes registry to discovery register/unregister events and
// the per-service health wildcard topic, so the instance inventory
// tracks the bus without a direct import of pkg/discovery.
func Wire(client *bus.Client, registry *Registry) error {
	if err := client.Subscribe(bus.TopicDiscoveryRegister, func(ctx context.Context, env *types.Envelope) {
		handleRegister(registry, env)
	}); err != nil {
		return err
	}
	if err := client.Subscribe(bus.TopicDiscoveryUnregister, func(ctx context.Context, env *types.Envelope) {
		handleUnregister(registry, env)
	}); err != nil {
		return err
	}
	return client.Subscribe("alicia/system/health/+", func(ctx context.Context, env *types.Envelope) {
		handleHealth(registry, env)
	})
}

func handleRegister(registry *Registry, env *types.Envelope) {
	service, _ := env.Payload["service"].(string)
	if service == "" {
		return
	}
	instanceID, _ := env.Payload["instance_id"].(string)
	if instanceID == "" {
		instanceID = fmt.Sprintf("%s-%s", service, env.Source)
	}
	host, _ := env.Payload["host"].(string)
	port, _ := env.Payload["port"].(float64)
	registry.Register(service, instanceID, host, int(port))
}

func handleUnregister(registry *Registry, env *types.Envelope) {
	service, _ := env.Payload["service"].(string)
	if service == "" {
		return
	}
	instanceID, _ := env.Payload["instance_id"].(string)
	if instanceID == "" {
		instanceID = fmt.Sprintf("%s-%s", service, env.Source)
	}
	registry.Unregister(service, instanceID)
}

func handleHealth(registry *Registry, env *types.Envelope) {
	service := env.Source
	if service == "" {
		return
	}
	instanceID, _ := env.Payload["instance_id"].(string)
	if instanceID == "" {
		instanceID = fmt.Sprintf("%s-%s", service, env.Source)
	}
	status, _ := env.Payload["status"].(string)
	responseMs, _ := env.Payload["response_time_ms"].(float64)
	registry.UpdateHealth(service, instanceID, status != string(types.ServiceStatusOffline), responseMs)
}
