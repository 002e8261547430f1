package aiengine

import (
	"context"

	"github.com/aliciabus/alicia/pkg/engine"
	"github.com/aliciabus/alicia/pkg/metrics"
)

// Result is one AI completion outcome.
type Result struct {
	Success    bool    `json:"success"`
	Response   string  `json:"response,omitempty"`
	TokensUsed int     `json:"tokens_used"`
	Model      string  `json:"model"`
	AITimeMs   float64 `json:"ai_time_ms"`
	Error      string  `json:"error,omitempty"`
}

// Orchestrator is the AI adapter: one engine, a dual rate limiter, a
// bounded job queue, a small worker pool.
type Orchestrator struct {
	eng     Engine
	limiter *limiter
	pool    *engine.Pool
}

// NewOrchestrator creates an orchestrator around eng, gated by limits.
func NewOrchestrator(eng Engine, limits Limits, workers, queueSize int) *Orchestrator {
	return &Orchestrator{eng: eng, limiter: newLimiter(limits), pool: engine.NewPool(workers, queueSize)}
}

func (o *Orchestrator) Run(ctx context.Context) { o.pool.Run(ctx) }
func (o *Orchestrator) Stop()                   { o.pool.Stop() }

// Complete waits for rate-limiter budget, then runs prompt through the
// engine synchronously.
func (o *Orchestrator) Complete(ctx context.Context, prompt string) Result {
	timer := metrics.NewTimer()

	if err := o.limiter.Wait(ctx, estimateTokens(prompt)); err != nil {
		metrics.AIJobsTotal.WithLabelValues(o.eng.Model(), "rate_limited").Inc()
		return Result{Success: false, Model: o.eng.Model(), AITimeMs: timer.Duration().Seconds() * 1000, Error: err.Error()}
	}

	completion, err := o.eng.Complete(ctx, prompt)
	durationMs := timer.Duration().Seconds() * 1000

	if err != nil {
		metrics.AIJobsTotal.WithLabelValues(o.eng.Model(), "error").Inc()
		return Result{Success: false, Model: o.eng.Model(), AITimeMs: durationMs, Error: err.Error()}
	}

	metrics.AIJobsTotal.WithLabelValues(o.eng.Model(), "success").Inc()
	metrics.AITokensUsedTotal.WithLabelValues(o.eng.Model()).Add(float64(completion.TokensUsed))

	return Result{
		Success:    true,
		Response:   completion.Response,
		TokensUsed: completion.TokensUsed,
		Model:      o.eng.Model(),
		AITimeMs:   durationMs,
	}
}

// Submit enqueues an asynchronous completion job; returns false
// (queue_full) if the queue has no room.
func (o *Orchestrator) Submit(prompt string, onDone func(Result)) bool {
	return o.pool.Submit(engine.Job{Handle: func(ctx context.Context) {
		onDone(o.Complete(ctx, prompt))
	}})
}

func (o *Orchestrator) ModelName() string { return o.eng.Model() }
