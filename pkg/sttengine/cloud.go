package sttengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/errs"
)

// CloudEngine is the thin adapter shape for google/azure's speech-to-
// text SDKs, returning api_error until wired to a real client — the
// concrete SDKs are out-of-scope external collaborators.
type CloudEngine struct {
	name string
	Call func(ctx context.Context, job Job) (Transcript, error)
}

func NewGoogleEngine() *CloudEngine { return &CloudEngine{name: "google"} }
func NewAzureEngine() *CloudEngine  { return &CloudEngine{name: "azure"} }

func (c *CloudEngine) Name() string { return c.name }

func (c *CloudEngine) Transcribe(ctx context.Context, job Job) (Transcript, error) {
	if c.Call == nil {
		return Transcript{}, apiError(c.name, errs.New(errs.KindInternal, "no SDK client configured"))
	}
	out, err := c.Call(ctx, job)
	if err != nil {
		return Transcript{}, apiError(c.name, err)
	}
	return out, nil
}
