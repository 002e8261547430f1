package sttengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/engine"
	"github.com/aliciabus/alicia/pkg/metrics"
)

// Result is one transcription outcome, mirroring pkg/ttsengine's
// Result shape with a stt_time_ms field instead of processing_time.
type Result struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text,omitempty"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	STTTimeMs  float64 `json:"stt_time_ms"`
	Engine     string  `json:"engine"`
	Error      string  `json:"error,omitempty"`
}

// Orchestrator is the STT adapter: one engine, one bounded job queue,
// a small worker pool.
type Orchestrator struct {
	eng  Engine
	pool *engine.Pool
}

// NewOrchestrator creates an orchestrator around eng.
func NewOrchestrator(eng Engine, workers, queueSize int) *Orchestrator {
	return &Orchestrator{eng: eng, pool: engine.NewPool(workers, queueSize)}
}

func (o *Orchestrator) Run(ctx context.Context) { o.pool.Run(ctx) }
func (o *Orchestrator) Stop()                   { o.pool.Stop() }

// Transcribe runs job through the adapter's engine synchronously.
func (o *Orchestrator) Transcribe(ctx context.Context, job Job) Result {
	timer := metrics.NewTimer()
	transcript, err := o.eng.Transcribe(ctx, job)
	durationMs := timer.Duration().Seconds() * 1000

	if err != nil {
		metrics.STTJobsTotal.WithLabelValues(o.eng.Name(), "error").Inc()
		return Result{Success: false, Engine: o.eng.Name(), STTTimeMs: durationMs, Error: err.Error()}
	}
	metrics.STTJobsTotal.WithLabelValues(o.eng.Name(), "success").Inc()
	return Result{
		Success:    true,
		Text:       transcript.Text,
		Language:   transcript.Language,
		Confidence: transcript.Confidence,
		STTTimeMs:  durationMs,
		Engine:     o.eng.Name(),
	}
}

// Submit enqueues an asynchronous transcription job; returns false
// (queue_full) if the queue has no room.
func (o *Orchestrator) Submit(job Job, onDone func(Result)) bool {
	return o.pool.Submit(engine.Job{Handle: func(ctx context.Context) {
		onDone(o.Transcribe(ctx, job))
	}})
}

func (o *Orchestrator) EngineName() string { return o.eng.Name() }
