package aiengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/errs"
)

// CloudEngine is the thin adapter shape for a hosted LLM API,
// returning api_error until Call is wired to a real client — the
// concrete model back end is an out-of-scope external collaborator.
type CloudEngine struct {
	model string
	Call  func(ctx context.Context, prompt string) (Completion, error)
}

// NewCloudEngine creates a named model adapter shape.
func NewCloudEngine(model string) *CloudEngine {
	return &CloudEngine{model: model}
}

func (c *CloudEngine) Model() string { return c.model }

func (c *CloudEngine) Complete(ctx context.Context, prompt string) (Completion, error) {
	if c.Call == nil {
		return Completion{}, apiError(c.model, errs.New(errs.KindInternal, "no model client configured"))
	}
	out, err := c.Call(ctx, prompt)
	if err != nil {
		return Completion{}, apiError(c.model, err)
	}
	return out, nil
}
