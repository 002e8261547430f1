package ttsengine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name    string
	fail    error
	calls   int
	lastTxt string
}

func (f *fakeEngine) Name() string         { return f.name }
func (f *fakeEngine) ListVoices() []string { return []string{"default"} }
func (f *fakeEngine) Synthesize(ctx context.Context, text, voice string) (string, error) {
	f.calls++
	f.lastTxt = text
	if f.fail != nil {
		return "", f.fail
	}
	return "/tmp/out.wav", nil
}

func TestOrchestrator_SynthesizeSuccess(t *testing.T) {
	fe := &fakeEngine{name: "piper"}
	o := NewOrchestrator(fe, 1, 4, 0)

	result := o.Synthesize(context.Background(), "hello world", "default")
	require.True(t, result.Success, "expected success, got error %q", result.Error)
	assert.Equal(t, "/tmp/out.wav", result.AudioPath)
	assert.Equal(t, "piper", result.Engine)
}

func TestOrchestrator_SynthesizeTruncatesLongText(t *testing.T) {
	fe := &fakeEngine{name: "piper"}
	o := NewOrchestrator(fe, 1, 4, 10)

	longText := strings.Repeat("a", 50)
	o.Synthesize(context.Background(), longText, "")

	assert.True(t, strings.HasPrefix(fe.lastTxt, strings.Repeat("a", 10)), "expected truncation to 10 source chars, got %q", fe.lastTxt)
	assert.True(t, strings.HasSuffix(fe.lastTxt, "…"), "expected ellipsis suffix, got %q", fe.lastTxt)
}

func TestOrchestrator_SynthesizeFailurePropagatesError(t *testing.T) {
	fe := &fakeEngine{name: "google", fail: errors.New("sdk unavailable")}
	o := NewOrchestrator(fe, 1, 4, 0)

	result := o.Synthesize(context.Background(), "hi", "")
	assert.False(t, result.Success, "expected failure result")
	assert.NotEmpty(t, result.Error, "expected error message populated")
}

func TestOrchestrator_SubmitShedsWhenQueueFull(t *testing.T) {
	fe := &fakeEngine{name: "piper"}
	o := NewOrchestrator(fe, 0, 1, 0) // Run is never called: nothing drains the queue

	first := o.Submit("a", "", func(Result) {})
	second := o.Submit("b", "", func(Result) {})

	assert.True(t, first, "expected first submit to succeed")
	assert.False(t, second, "expected second submit to be shed once queue is full")
}

func TestCloudEngine_NoSDKConfiguredReturnsAPIError(t *testing.T) {
	ce := NewGoogleEngine([]string{"en-US-Standard-A"})
	_, err := ce.Synthesize(context.Background(), "hi", "")
	assert.Error(t, err, "expected error when no SDK client configured")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
	assert.Equal(t, "abc…", truncate("abcdef", 3))
}
