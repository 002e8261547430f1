package security

import (
	"context"
	"encoding/base64"

	"github.com/aliciabus/alicia/pkg/bus"
	"github.com/aliciabus/alicia/pkg/log"
	"github.com/aliciabus/alicia/pkg/types"
)

// Wire subscribes client to the three security request topics and
// publishes each answer to the requester's reply topic, carrying the
// correlation message_id.
func Wire(client *bus.Client, gateway *Gateway) error {
	if err := client.Subscribe(bus.SecurityRequestTopic("auth"), func(ctx context.Context, env *types.Envelope) {
		handleAuth(ctx, client, gateway, env)
	}); err != nil {
		return err
	}
	if err := client.Subscribe(bus.SecurityRequestTopic("validate"), func(ctx context.Context, env *types.Envelope) {
		handleValidate(ctx, client, gateway, env)
	}); err != nil {
		return err
	}
	return client.Subscribe(bus.SecurityRequestTopic("encrypt"), func(ctx context.Context, env *types.Envelope) {
		handleEncrypt(ctx, client, gateway, env)
	})
}

func handleAuth(ctx context.Context, client *bus.Client, gateway *Gateway, env *types.Envelope) {
	certPEM, _ := env.Payload["certificate_pem"].(string)
	logger := log.WithComponent("security")

	principal, err := gateway.AuthenticateDevice([]byte(certPEM))
	payload := map[string]any{"correlation_id": env.MessageID}
	if err != nil {
		payload["error"] = err.Error()
	} else {
		payload["device_id"] = principal.DeviceID
		payload["token"] = principal.Token
		payload["expires_at"] = principal.ExpiresAt
	}

	if pubErr := client.Publish(ctx, bus.SecurityResponseTopic("auth"), payload, bus.PublishOptions{
		Destination: env.Source, MessageType: types.MessageTypeResponse,
	}); pubErr != nil {
		logger.Error().Err(pubErr).Msg("publish auth response failed")
	}
}

func handleValidate(ctx context.Context, client *bus.Client, gateway *Gateway, env *types.Envelope) {
	token, _ := env.Payload["token"].(string)
	logger := log.WithComponent("security")

	principal, err := gateway.ValidateToken(token)
	payload := map[string]any{"correlation_id": env.MessageID}
	if err != nil {
		payload["valid"] = false
		payload["error"] = err.Error()
	} else {
		payload["valid"] = true
		payload["device_id"] = principal.DeviceID
	}

	if pubErr := client.Publish(ctx, bus.SecurityResponseTopic("validate"), payload, bus.PublishOptions{
		Destination: env.Source, MessageType: types.MessageTypeResponse,
	}); pubErr != nil {
		logger.Error().Err(pubErr).Msg("publish validate response failed")
	}
}

func handleEncrypt(ctx context.Context, client *bus.Client, gateway *Gateway, env *types.Envelope) {
	logger := log.WithComponent("security")
	plaintextB64, _ := env.Payload["plaintext"].(string)
	decrypt, _ := env.Payload["decrypt"].(bool)

	payload := map[string]any{"correlation_id": env.MessageID}

	if decrypt {
		ciphertext, _ := base64.StdEncoding.DecodeString(plaintextB64)
		result, err := gateway.DecryptMessage(ciphertext)
		if err != nil {
			payload["error"] = err.Error()
		} else {
			payload["plaintext"] = base64.StdEncoding.EncodeToString(result)
		}
	} else {
		raw, _ := base64.StdEncoding.DecodeString(plaintextB64)
		result, err := gateway.EncryptMessage(raw)
		if err != nil {
			payload["error"] = err.Error()
		} else {
			payload["ciphertext"] = base64.StdEncoding.EncodeToString(result)
		}
	}

	if pubErr := client.Publish(ctx, bus.SecurityResponseTopic("encrypt"), payload, bus.PublishOptions{
		Destination: env.Source, MessageType: types.MessageTypeResponse,
	}); pubErr != nil {
		logger.Error().Err(pubErr).Msg("publish encrypt response failed")
	}
}
