package sttengine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name string
	fail error
	out  Transcript
}

func (f *fakeEngine) Name() string { return f.name }
func (f *fakeEngine) Transcribe(ctx context.Context, job Job) (Transcript, error) {
	if f.fail != nil {
		return Transcript{}, f.fail
	}
	return f.out, nil
}

func TestOrchestrator_TranscribeSuccess(t *testing.T) {
	fe := &fakeEngine{name: "whisper", out: Transcript{Text: "hello", Language: "en", Confidence: 0.95}}
	o := NewOrchestrator(fe, 1, 4)

	result := o.Transcribe(context.Background(), Job{Audio: []byte("fake-audio")})
	require.True(t, result.Success, "expected success, got error %q", result.Error)
	assert.Equal(t, "hello", result.Text)
	assert.Equal(t, "whisper", result.Engine)
}

func TestOrchestrator_TranscribeFailure(t *testing.T) {
	fe := &fakeEngine{name: "google", fail: errors.New("sdk down")}
	o := NewOrchestrator(fe, 1, 4)

	result := o.Transcribe(context.Background(), Job{URL: "https://example.com/audio.wav"})
	assert.False(t, result.Success, "expected failure result")
	assert.NotEmpty(t, result.Error, "expected error message populated")
}

func TestWhisperEngine_RejectsEmptyAudio(t *testing.T) {
	w := NewWhisperEngine("", "model.bin", t.TempDir(), "en")
	_, err := w.Transcribe(context.Background(), Job{URL: "https://example.com/audio.wav"})
	assert.Error(t, err, "expected validation error for URL-only job with no audio bytes")
}

func TestCloudEngine_NoSDKConfiguredReturnsAPIError(t *testing.T) {
	ce := NewGoogleEngine()
	_, err := ce.Transcribe(context.Background(), Job{Audio: []byte("x")})
	assert.Error(t, err, "expected error when no SDK client configured")
}

func TestOrchestrator_SubmitShedsWhenQueueFull(t *testing.T) {
	fe := &fakeEngine{name: "whisper"}
	o := NewOrchestrator(fe, 0, 1)

	first := o.Submit(Job{Audio: []byte("a")}, func(Result) {})
	second := o.Submit(Job{Audio: []byte("b")}, func(Result) {})

	assert.True(t, first, "expected first submit to succeed")
	assert.False(t, second, "expected second submit to be shed once queue is full")
}
