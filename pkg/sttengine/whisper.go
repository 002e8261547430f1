package sttengine

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/google/uuid"
)

// whisperTimeout bounds the subprocess invocation, the same shape as
// piper's subprocess timeout in pkg/ttsengine.
const whisperTimeout = 30 * time.Second

// whisperOutput is whisper.cpp's --output-json shape, trimmed to the
// fields this adapter needs.
type whisperOutput struct {
	Text string `json:"text"`
}

// WhisperEngine shells out to a local whisper.cpp binary against a
// temporary audio file.
type WhisperEngine struct {
	BinaryPath string
	ModelPath  string
	ScratchDir string
	Language   string
}

// NewWhisperEngine creates a whisper-backed engine. binaryPath
// defaults to "whisper" (resolved via PATH) when empty.
func NewWhisperEngine(binaryPath, modelPath, scratchDir, language string) *WhisperEngine {
	if binaryPath == "" {
		binaryPath = "whisper"
	}
	return &WhisperEngine{BinaryPath: binaryPath, ModelPath: modelPath, ScratchDir: scratchDir, Language: language}
}

func (w *WhisperEngine) Name() string { return "whisper" }

func (w *WhisperEngine) Transcribe(ctx context.Context, job Job) (Transcript, error) {
	if len(job.Audio) == 0 {
		return Transcript{}, errs.New(errs.KindValidation, "no audio bytes to transcribe; URL-sourced audio must be fetched by the caller")
	}

	audioPath, err := w.writeScratchFile(job.Audio)
	if err != nil {
		return Transcript{}, err
	}
	defer os.Remove(audioPath)

	jsonPath := audioPath + ".json"
	defer os.Remove(jsonPath)

	execCtx, cancel := context.WithTimeout(ctx, whisperTimeout)
	defer cancel()

	args := []string{"--model", w.ModelPath, "--output-json", "--output-file", strings.TrimSuffix(jsonPath, ".json"), audioPath}
	if w.Language != "" {
		args = append(args, "--language", w.Language)
	}

	cmd := exec.CommandContext(execCtx, w.BinaryPath, args...)
	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return Transcript{}, errs.Wrap(errs.KindTimeout, "whisper transcription timed out", err)
		}
		return Transcript{}, errs.Wrap(errs.KindTransport, "whisper exited with nonzero status", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return Transcript{}, errs.Wrap(errs.KindInternal, "read whisper output", err)
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Transcript{}, errs.Wrap(errs.KindInternal, "parse whisper output", err)
	}

	return Transcript{Text: strings.TrimSpace(out.Text), Language: w.Language, Confidence: 1.0}, nil
}

func (w *WhisperEngine) writeScratchFile(audio []byte) (string, error) {
	path := w.ScratchDir + "/" + uuid.NewString() + ".wav"
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", errs.Wrap(errs.KindInternal, "write scratch audio file", err)
	}
	return path, nil
}
