package ttsengine

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aliciabus/alicia/pkg/errs"
	"github.com/google/uuid"
)

// piperTimeout bounds the subprocess invocation, matching the exact
// "subprocess, 30s timeout" failure mode.
const piperTimeout = 30 * time.Second

// PiperEngine shells out to the piper CLI, writing synthesized audio
// to outputDir and returning the resulting file's path.
type PiperEngine struct {
	BinaryPath string
	ModelPath  string
	OutputDir  string
	Voices     []string
}

// NewPiperEngine creates a piper-backed engine. binaryPath defaults to
// "piper" (resolved via PATH) when empty.
func NewPiperEngine(binaryPath, modelPath, outputDir string, voices []string) *PiperEngine {
	if binaryPath == "" {
		binaryPath = "piper"
	}
	return &PiperEngine{BinaryPath: binaryPath, ModelPath: modelPath, OutputDir: outputDir, Voices: voices}
}

func (p *PiperEngine) Name() string { return "piper" }

func (p *PiperEngine) ListVoices() []string { return p.Voices }

// Synthesize runs the piper binary against text, writing a wav file
// under OutputDir. Failure modes map to timeout, nonzero_exit, or
// invalid_output per the engine selection table.
func (p *PiperEngine) Synthesize(ctx context.Context, text, voice string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, piperTimeout)
	defer cancel()

	outputPath := filepath.Join(p.OutputDir, uuid.NewString()+".wav")

	args := []string{"--model", p.ModelPath, "--output_file", outputPath}
	if voice != "" {
		args = append(args, "--speaker", voice)
	}

	cmd := exec.CommandContext(execCtx, p.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(text)

	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return "", errs.Wrap(errs.KindTimeout, "piper synthesis timed out", err)
		}
		return "", errs.Wrap(errs.KindTransport, "piper exited with nonzero status", err)
	}

	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return "", errs.New(errs.KindInternal, "piper produced no output")
	}
	return outputPath, nil
}
