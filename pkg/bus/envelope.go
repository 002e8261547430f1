package bus

import (
	"encoding/json"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/types"
	"github.com/google/uuid"
)

// PublishOptions customizes envelope fields for one Publish call.
type PublishOptions struct {
	Destination string
	MessageType types.MessageType
	Priority    types.Priority
	TTLSeconds  float64
}

// defaulted fills zero-value options with the envelope defaults.
func (o PublishOptions) defaulted() PublishOptions {
	if o.Destination == "" {
		o.Destination = "broadcast"
	}
	if o.MessageType == "" {
		o.MessageType = types.MessageTypeEvent
	}
	if o.Priority == "" {
		o.Priority = types.PriorityNormal
	}
	if o.TTLSeconds == 0 {
		o.TTLSeconds = types.DefaultTTLSeconds
	}
	return o
}

// NewEnvelope wraps payload in a fresh envelope sourced from source.
func NewEnvelope(source string, payload map[string]any, opts PublishOptions) *types.Envelope {
	opts = opts.defaulted()
	now := time.Now()
	return &types.Envelope{
		MessageID:   uuid.NewString(),
		Timestamp:   float64(now.Unix()) + float64(now.Nanosecond())/1e9,
		Source:      source,
		Destination: opts.Destination,
		MessageType: opts.MessageType,
		Priority:    opts.Priority,
		TTLSeconds:  opts.TTLSeconds,
		Payload:     payload,
		Routing:     types.Routing{Hops: 0, MaxHops: types.DefaultMaxHops},
	}
}

// EncodeEnvelope marshals an envelope to wire bytes.
func EncodeEnvelope(env *types.Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "encode envelope", err)
	}
	return data, nil
}

// DecodeEnvelope unmarshals wire bytes into an envelope. Malformed
// payloads are reported as KindValidation so callers can bump an
// error counter and drop the message without retrying.
func DecodeEnvelope(data []byte) (*types.Envelope, error) {
	var env types.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errs.Wrap(errs.KindValidation, "decode envelope", err)
	}
	if env.MessageID == "" || env.Source == "" {
		return nil, errs.New(errs.KindValidation, "envelope missing message_id or source")
	}
	return &env, nil
}
