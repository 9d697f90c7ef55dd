package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"interview-backend/internal/shared/executor"
	"interview-backend/internal/shared/metrics"
)

// Espeak synthesizes speech locally with espeak-ng.
type Espeak struct {
	exec  executor.Executor
	bin   string
	voice string
	speed int
}

// NewEspeak builds an espeak-ng synthesizer. speed is words per minute.
func NewEspeak(exec executor.Executor, bin, voice string, speed int) *Espeak {
	if bin == "" {
		bin = "espeak-ng"
	}
	if voice == "" {
		voice = "en-us"
	}
	if speed <= 0 {
		speed = 160
	}
	return &Espeak{exec: exec, bin: bin, voice: voice, speed: speed}
}

// Synthesize renders text to a WAV clip.
func (e *Espeak) Synthesize(ctx context.Context, text string) (Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Clip{}, ErrEmptyText
	}
	start := time.Now()
	defer func() { metrics.ObserveStage("tts", time.Since(start)) }()

	dir, err := os.MkdirTemp("", "tts-*")
	if err != nil {
		return Clip{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	out := filepath.Join(dir, "speech.wav")
	args := []string{"-v", e.voice, "-s", strconv.Itoa(e.speed), "-w", out, "--", text}
	if _, err := e.exec.Execute(ctx, e.bin, args...); err != nil {
		return Clip{}, fmt.Errorf("espeak synthesize: %w", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return Clip{}, fmt.Errorf("read synthesized audio: %w", err)
	}
	return Clip{Data: data, ContentType: "audio/wav"}, nil
}
