// Package types defines the core data structures shared across Alicia's
// bus services: the message envelope, service/instance descriptors used by
// discovery and the load balancer, devices and commands used by the device
// manager, configuration entries, and the security principal and circuit
// breaker state machines.
package types

import "time"

// MessageType identifies the kind of payload an envelope carries.
type MessageType string

const (
	MessageTypeEvent    MessageType = "event"
	MessageTypeRequest  MessageType = "request"
	MessageTypeResponse MessageType = "response"
	MessageTypeError    MessageType = "error"
	MessageTypeCommand  MessageType = "command"
)

// Priority is the envelope and command priority.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// DefaultTTLSeconds is the envelope TTL applied when none is set.
const DefaultTTLSeconds = 300

// DefaultMaxHops is the hop count at which a relayed envelope is dropped.
const DefaultMaxHops = 10

// Routing tracks relay hops for loop and fan-out control.
type Routing struct {
	Hops    int `json:"hops"`
	MaxHops int `json:"max_hops"`
}

// Envelope is the fixed wrapper around every bus message.
type Envelope struct {
	MessageID   string         `json:"message_id"`
	Timestamp   float64        `json:"timestamp"` // wall clock seconds
	Source      string         `json:"source"`
	Destination string         `json:"destination"`
	MessageType MessageType    `json:"message_type"`
	Priority    Priority       `json:"priority"`
	TTLSeconds  float64        `json:"ttl_seconds"`
	Payload     map[string]any `json:"payload"`
	Routing     Routing        `json:"routing"`
}

// Expired reports whether the envelope's TTL has elapsed as of now.
func (e *Envelope) Expired(now time.Time) bool {
	deadline := e.Timestamp + e.TTLSeconds
	nowSeconds := float64(now.Unix()) + float64(now.Nanosecond())/1e9
	return deadline < nowSeconds
}

// ExceedsMaxHops reports whether relaying this envelope once more would
// exceed its configured hop budget.
func (e *Envelope) ExceedsMaxHops() bool {
	maxHops := e.Routing.MaxHops
	if maxHops == 0 {
		maxHops = DefaultMaxHops
	}
	return e.Routing.Hops >= maxHops
}

// ServiceStatus is the discovery status of a registered service.
type ServiceStatus string

const (
	ServiceStatusOnline   ServiceStatus = "online"
	ServiceStatusOffline  ServiceStatus = "offline"
	ServiceStatusDegraded ServiceStatus = "degraded"
	ServiceStatusUnknown  ServiceStatus = "unknown"
)

// ServiceDescriptor is what a service announces to discovery.
type ServiceDescriptor struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Capabilities []string          `json:"capabilities"`
	Endpoints    map[string]string `json:"endpoints"` // role -> topic
	Status       ServiceStatus     `json:"status"`
	LastSeen     time.Time         `json:"last_seen"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// HealthStatus is the load balancer's view of an instance's health.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ServiceInstance is one routable instance of a logical service.
type ServiceInstance struct {
	InstanceID        string       `json:"instance_id"`
	ServiceName       string       `json:"service_name"`
	Host              string       `json:"host"`
	Port              int          `json:"port"`
	HealthStatus      HealthStatus `json:"health_status"`
	ActiveConnections int          `json:"active_connections"`
	Weight            int          `json:"weight"`
	LastHealthCheck   time.Time    `json:"last_health_check"`
	ResponseTimeMs    float64      `json:"response_time_ms"`
	TotalRequests     int64        `json:"total_requests"`
	FailedRequests    int64        `json:"failed_requests"`
}

// DeviceStatus is the device manager's lifecycle status for a device.
type DeviceStatus string

const (
	DeviceStatusRegistered DeviceStatus = "registered"
	DeviceStatusOnline     DeviceStatus = "online"
	DeviceStatusOffline    DeviceStatus = "offline"
)

// CapabilityDescriptor names one ability a device exposes, plus a
// capability-specific parameter schema (e.g. {"brightness": "int:0-100"}).
type CapabilityDescriptor struct {
	Name   string            `json:"name"`
	Schema map[string]string `json:"schema,omitempty"`
}

// Device is a controllable endpoint on the bus.
type Device struct {
	DeviceID     string                           `json:"device_id"`
	DeviceType   string                           `json:"device_type"`
	Capabilities map[string]*CapabilityDescriptor `json:"capabilities"`
	Endpoints    map[string]string                `json:"endpoints"` // control/status topics
	Status       DeviceStatus                     `json:"status"`
	Metadata     map[string]string                `json:"metadata,omitempty"`
	LastSeen     time.Time                        `json:"last_seen"`
	LastStatus   map[string]any                   `json:"last_status,omitempty"`
	RegisteredAt time.Time                        `json:"registered_at"`
}

// CommandStatus is the lifecycle status of a device command.
type CommandStatus string

const (
	CommandStatusQueued    CommandStatus = "queued"
	CommandStatusExecuting CommandStatus = "executing"
	CommandStatusCompleted CommandStatus = "completed"
	CommandStatusTimeout   CommandStatus = "timeout"
	CommandStatusFailed    CommandStatus = "failed"
)

// Command is a single fan-out operation against one or more devices.
type Command struct {
	CommandID   string         `json:"command_id"`
	DeviceIDs   []string       `json:"device_ids"`
	Command     string         `json:"command"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Priority    Priority       `json:"priority"`
	QueuedAt    time.Time      `json:"queued_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Status      CommandStatus  `json:"status"`
	Responses   map[string]any `json:"responses,omitempty"` // device_id -> response payload
	Error       string         `json:"error,omitempty"`
}

// SecurityPrincipal is an authenticated device's bearer-token record.
type SecurityPrincipal struct {
	DeviceID  string    `json:"device_id"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the principal's token has expired as of now.
func (p *SecurityPrincipal) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// CircuitState is one of the three circuit breaker states.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitHalfOpen CircuitState = "half_open"
	CircuitOpen     CircuitState = "open"
)

// CircuitBreakerState is the per-instance breaker bookkeeping.
type CircuitBreakerState struct {
	State               CircuitState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastFailureAt       time.Time    `json:"last_failure_at"`
	NextAttemptAt       time.Time    `json:"next_attempt_at"`
}

// ConfigHistoryEntry records one applied configuration change.
type ConfigHistoryEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Service   string         `json:"service"` // "" for global updates
	Action    string         `json:"action"`  // "update_service" | "update_global"
	Old       map[string]any `json:"old,omitempty"`
	New       map[string]any `json:"new,omitempty"`
}
