// Package sttengine wraps one or more pluggable speech-to-text back
// ends behind the same adapter shape as pkg/ttsengine: a bounded job
// queue, a small worker pool, bus/HTTP surfaces.
package sttengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/errs"
)

// Job is one transcription request: either raw audio bytes or a URL
// to fetch, never both.
type Job struct {
	Audio []byte
	URL   string
}

// Transcript is one STT result.
type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Engine is the pluggable STT back end every concrete adapter
// implements.
type Engine interface {
	Transcribe(ctx context.Context, job Job) (Transcript, error)
	Name() string
}

func apiError(engine string, cause error) error {
	return errs.Wrap(errs.KindTransport, engine+" API call failed", cause)
}
