package bus

import "fmt"

// Topic builders for the alicia/ broker hierarchy (spec §6).
const (
	TopicDiscoveryRegister   = "alicia/system/discovery/register"
	TopicDiscoveryUnregister = "alicia/system/discovery/unregister"
	TopicHealthCheck         = "alicia/system/health/check"

	TopicConfigRequest       = "alicia/config/request"
	TopicConfigGlobalRequest = "alicia/config/global/request"

	TopicDevicesPrefix = "alicia/devices/"

	TopicVoiceSTTRequest  = "alicia/voice/stt/request"
	TopicVoiceSTTResponse = "alicia/voice/stt/response"
	TopicVoiceSTTError    = "alicia/voice/stt/error"

	TopicVoiceAIRequest  = "alicia/voice/ai/request"
	TopicVoiceAIResponse = "alicia/voice/ai/response"
	TopicVoiceAIError    = "alicia/voice/ai/error"

	TopicVoiceTTSRequest  = "alicia/voice/tts/request"
	TopicVoiceTTSResponse = "alicia/voice/tts/response"
	TopicVoiceTTSError    = "alicia/voice/tts/error"
)

// HealthTopic is the per-service heartbeat topic.
func HealthTopic(service string) string {
	return fmt.Sprintf("alicia/system/health/%s", service)
}

// SecurityRequestTopic is the request topic for a security operation
// ("auth", "encrypt", "validate").
func SecurityRequestTopic(op string) string {
	return fmt.Sprintf("alicia/system/security/%s", op)
}

// SecurityResponseTopic is the response topic for a security operation.
func SecurityResponseTopic(op string) string {
	return fmt.Sprintf("alicia/system/security/%s_response", op)
}

// ConfigUpdateTopic is where the config service pushes a service's
// updated configuration.
func ConfigUpdateTopic(service string) string {
	return fmt.Sprintf("alicia/config/%s/update", service)
}

// ConfigResponseTopic is where the config service answers a pull request.
func ConfigResponseTopic(requester string) string {
	return fmt.Sprintf("alicia/config/%s/response", requester)
}

// DeviceCommandTopic is where the device manager publishes commands to a device.
func DeviceCommandTopic(deviceID string) string {
	return fmt.Sprintf("alicia/devices/%s/command", deviceID)
}

// DeviceStatusTopic is where a device publishes its status.
func DeviceStatusTopic(deviceID string) string {
	return fmt.Sprintf("alicia/devices/%s/status", deviceID)
}

// DeviceResponseTopic is where a device publishes command responses.
func DeviceResponseTopic(deviceID string) string {
	return fmt.Sprintf("alicia/devices/%s/response", deviceID)
}

// CapabilityTopic is the capability-addressed call topic.
func CapabilityTopic(name string) string {
	return fmt.Sprintf("capability:%s", name)
}

// LoadBalancerRouteTopic is where the load balancer announces routing decisions.
func LoadBalancerRouteTopic(service string) string {
	return fmt.Sprintf("alicia/loadbalancer/route/%s", service)
}
