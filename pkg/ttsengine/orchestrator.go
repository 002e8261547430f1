package ttsengine

import (
	"context"
	"encoding/base64"
	"os"

	"github.com/aliciabus/alicia/pkg/engine"
	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/aliciabus/alicia/pkg/metrics"
)

var errValidationEmptyText = errs.New(errs.KindValidation, "text must not be empty")

// Result is one synthesis outcome.
type Result struct {
	Success        bool    `json:"success"`
	AudioPath      string  `json:"audio_path,omitempty"`
	AudioBase64    string  `json:"audio_base64,omitempty"`
	Engine         string  `json:"engine"`
	ProcessingTime float64 `json:"processing_time"`
	Error          string  `json:"error,omitempty"`
}

// Orchestrator is the TTS adapter: one engine, one bounded job queue,
// a small worker pool.
type Orchestrator struct {
	eng           Engine
	pool          *engine.Pool
	maxTextLength int
}

// NewOrchestrator creates an orchestrator around eng with workers
// draining a bounded queue. maxTextLen <= 0 uses the package default.
func NewOrchestrator(eng Engine, workers, queueSize, maxTextLen int) *Orchestrator {
	if maxTextLen <= 0 {
		maxTextLen = maxTextLength
	}
	return &Orchestrator{eng: eng, pool: engine.NewPool(workers, queueSize), maxTextLength: maxTextLen}
}

// Run starts the worker pool.
func (o *Orchestrator) Run(ctx context.Context) { o.pool.Run(ctx) }

// Stop stops the worker pool and waits for in-flight jobs; queued jobs
// that have not started are not run.
func (o *Orchestrator) Stop() { o.pool.Stop() }

// Synthesize runs text through the adapter's engine synchronously,
// returning a Result. Called both from the HTTP handler and from bus
// job handlers.
func (o *Orchestrator) Synthesize(ctx context.Context, text, voice string) Result {
	if len(text) == 0 {
		return Result{Success: false, Engine: o.eng.Name(), Error: errValidationEmptyText.Error()}
	}

	timer := metrics.NewTimer()
	text = truncate(text, o.maxTextLength)

	path, err := o.eng.Synthesize(ctx, text, voice)
	duration := timer.Duration().Seconds()
	timer.ObserveDurationVec(metrics.TTSJobDuration, o.eng.Name())

	if err != nil {
		metrics.TTSJobsTotal.WithLabelValues(o.eng.Name(), "error").Inc()
		return Result{Success: false, Engine: o.eng.Name(), ProcessingTime: duration, Error: err.Error()}
	}
	metrics.TTSJobsTotal.WithLabelValues(o.eng.Name(), "success").Inc()
	return Result{Success: true, AudioPath: path, Engine: o.eng.Name(), ProcessingTime: duration}
}

// SynthesizeBase64 is Synthesize plus reading the resulting file back
// as base64, for callers that want the audio inline rather than a
// server-local path.
func (o *Orchestrator) SynthesizeBase64(ctx context.Context, text, voice string) Result {
	result := o.Synthesize(ctx, text, voice)
	if !result.Success {
		return result
	}
	data, err := os.ReadFile(result.AudioPath)
	if err != nil {
		result.Success = false
		result.Error = errs.Wrap(errs.KindInternal, "read synthesized audio", err).Error()
		return result
	}
	result.AudioBase64 = base64.StdEncoding.EncodeToString(data)
	return result
}

// Submit enqueues an asynchronous synthesis job for the worker pool;
// it returns false (queue_full) if the queue has no room.
func (o *Orchestrator) Submit(text, voice string, onDone func(Result)) bool {
	return o.pool.Submit(engine.Job{Handle: func(ctx context.Context) {
		onDone(o.Synthesize(ctx, text, voice))
	}})
}

// ListVoices returns the underlying engine's voice list.
func (o *Orchestrator) ListVoices() []string { return o.eng.ListVoices() }

// EngineName returns the underlying engine's identifier.
func (o *Orchestrator) EngineName() string { return o.eng.Name() }
