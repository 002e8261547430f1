// Package ttsengine wraps one or more pluggable text-to-speech back
// ends behind a uniform adapter: a bounded job queue, a small worker
// pool, and bus/HTTP surfaces that share one synthesis path.
package ttsengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/errs"
)

// maxTextLength is the default input cap before truncation with a
// visible ellipsis.
const maxTextLength = 1000

// Engine is the pluggable TTS back end every concrete adapter
// implements.
type Engine interface {
	// Synthesize renders text in voice and returns a server-local
	// path to the resulting audio.
	Synthesize(ctx context.Context, text, voice string) (audioPath string, err error)
	ListVoices() []string
	Name() string
}

func truncate(text string, max int) string {
	if max <= 0 {
		max = maxTextLength
	}
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}

// apiError classifies a back-end SDK failure (google/azure) uniformly,
// since the taxonomy has no dedicated kind for "opaque external
// dependency error" — transport best matches "retry at the source,
// bubble up as unavailable after N attempts".
func apiError(engine string, cause error) error {
	return errs.Wrap(errs.KindTransport, engine+" API call failed", cause)
}
