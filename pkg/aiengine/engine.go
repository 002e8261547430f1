// Package aiengine wraps one or more pluggable large-language-model
// back ends behind the same adapter shape as pkg/ttsengine and
// pkg/sttengine, plus a dual rate limiter (requests/min, tokens/min)
// that sleeps the caller rather than dropping jobs.
package aiengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/errs"
)

// Completion is one AI response.
type Completion struct {
	Response   string `json:"response"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model"`
}

// Engine is the pluggable AI back end every concrete adapter
// implements.
type Engine interface {
	Complete(ctx context.Context, prompt string) (Completion, error)
	Model() string
}

func apiError(model string, cause error) error {
	return errs.Wrap(errs.KindTransport, model+" API call failed", cause)
}
