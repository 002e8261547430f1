package ttsengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/errs"
)

// CloudEngine is a thin adapter shape for google/azure's speech SDKs.
// Call is the hook a real integration plugs into; until wired it
// returns api_error, matching the engine selection table's
// documented failure mode for SDK back ends that are out-of-scope
// external collaborators.
type CloudEngine struct {
	name   string
	voices []string
	Call   func(ctx context.Context, text, voice string) (string, error)
}

// NewGoogleEngine creates the google cloud TTS adapter shape.
func NewGoogleEngine(voices []string) *CloudEngine {
	return &CloudEngine{name: "google", voices: voices}
}

// NewAzureEngine creates the azure speech TTS adapter shape.
func NewAzureEngine(voices []string) *CloudEngine {
	return &CloudEngine{name: "azure", voices: voices}
}

func (c *CloudEngine) Name() string         { return c.name }
func (c *CloudEngine) ListVoices() []string { return c.voices }

func (c *CloudEngine) Synthesize(ctx context.Context, text, voice string) (string, error) {
	if c.Call == nil {
		return "", apiError(c.name, errs.New(errs.KindInternal, "no SDK client configured"))
	}
	path, err := c.Call(ctx, text, voice)
	if err != nil {
		return "", apiError(c.name, err)
	}
	return path, nil
}
