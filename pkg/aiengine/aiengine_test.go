package aiengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	model string
	fail  error
	out   Completion
}

func (f *fakeEngine) Model() string { return f.model }
func (f *fakeEngine) Complete(ctx context.Context, prompt string) (Completion, error) {
	if f.fail != nil {
		return Completion{}, f.fail
	}
	return f.out, nil
}

func TestOrchestrator_CompleteSuccess(t *testing.T) {
	fe := &fakeEngine{model: "gpt-test", out: Completion{Response: "hi there", TokensUsed: 12, Model: "gpt-test"}}
	o := NewOrchestrator(fe, SmallLimits, 1, 4)

	result := o.Complete(context.Background(), "hello")
	require.True(t, result.Success, "expected success, got error %q", result.Error)
	assert.Equal(t, "hi there", result.Response)
	assert.Equal(t, 12, result.TokensUsed)
}

func TestOrchestrator_CompleteFailurePropagatesError(t *testing.T) {
	fe := &fakeEngine{model: "gpt-test", fail: errors.New("model unavailable")}
	o := NewOrchestrator(fe, SmallLimits, 1, 4)

	result := o.Complete(context.Background(), "hello")
	assert.False(t, result.Success, "expected failure result")
}

func TestLimiter_WaitBlocksUntilBudgetAvailable(t *testing.T) {
	tight := Limits{RequestsPerMinute: 120, TokensPerMinute: 6000, ContextWindow: 10000}
	l := newLimiter(tight)

	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, 6000))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, 50))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "expected second wait to be throttled by exhausted token budget")
}

func TestLimiter_WaitRespectsContextCancellation(t *testing.T) {
	tiny := Limits{RequestsPerMinute: 1, TokensPerMinute: 1, ContextWindow: 100}
	l := newLimiter(tiny)

	ctx := context.Background()
	_ = l.Wait(ctx, 1) // consume the sole request slot

	cancelCtx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(cancelCtx, 1), "expected context deadline to abort the wait")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, estimateTokens(""), "expected minimum estimate of 1")
	assert.Equal(t, 2, estimateTokens("abcdefgh"), "expected 8 chars / 4 = 2 tokens")
}

func TestCloudEngine_NoClientConfiguredReturnsAPIError(t *testing.T) {
	ce := NewCloudEngine("gpt-test")
	_, err := ce.Complete(context.Background(), "hello")
	assert.Error(t, err, "expected error when no model client configured")
}

func TestOrchestrator_SubmitShedsWhenQueueFull(t *testing.T) {
	fe := &fakeEngine{model: "gpt-test"}
	o := NewOrchestrator(fe, ReferenceLimits, 0, 1)

	first := o.Submit("a", func(Result) {})
	second := o.Submit("b", func(Result) {})

	assert.True(t, first, "expected first submit to succeed")
	assert.False(t, second, "expected second submit to be shed once queue is full")
}
