package aiengine

import (
	"context"

	"golang.org/x/time/rate"
)

// Limits describes one back end's advertised rate ceilings. The
// reference AI back end advertises 480 requests/min, 2,000,000
// tokens/min, a 256,000-token context window; a smaller back end uses
// 30/100,000/4,000.
type Limits struct {
	RequestsPerMinute int
	TokensPerMinute   int
	ContextWindow     int
}

// ReferenceLimits is the larger back end's advertised ceiling.
var ReferenceLimits = Limits{RequestsPerMinute: 480, TokensPerMinute: 2_000_000, ContextWindow: 256_000}

// SmallLimits is the smaller back end's advertised ceiling.
var SmallLimits = Limits{RequestsPerMinute: 30, TokensPerMinute: 100_000, ContextWindow: 4_000}

// limiter is the dual requests/min + tokens/min gate: Wait blocks the
// caller until both budgets have room, rather than dropping the job.
type limiter struct {
	requests *rate.Limiter
	tokens   *rate.Limiter
}

func newLimiter(limits Limits) *limiter {
	return &limiter{
		requests: rate.NewLimiter(rate.Limit(float64(limits.RequestsPerMinute)/60), limits.RequestsPerMinute),
		tokens:   rate.NewLimiter(rate.Limit(float64(limits.TokensPerMinute)/60), limits.TokensPerMinute),
	}
}

// Wait blocks until one request slot and estimatedTokens of budget are
// available, in that order.
func (l *limiter) Wait(ctx context.Context, estimatedTokens int) error {
	if err := l.requests.Wait(ctx); err != nil {
		return err
	}
	if estimatedTokens <= 0 {
		return nil
	}
	return l.tokens.WaitN(ctx, estimatedTokens)
}

// estimateTokens is a rough chars-per-token heuristic (~4 chars/token
// for English text) used to reserve token budget before the actual
// usage is known from the completion.
func estimateTokens(prompt string) int {
	estimate := len(prompt) / 4
	if estimate < 1 {
		estimate = 1
	}
	return estimate
}
