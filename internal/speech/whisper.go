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

// WhisperConfig configures the whisper.cpp CLI.
type WhisperConfig struct {
	BinaryPath string
	ModelPath  string
	Language   string
	Threads    int
}

// Whisper transcribes PCM with the whisper.cpp command line tool.
type Whisper struct {
	exec       executor.Executor
	cfg        WhisperConfig
	transcoder *Transcoder
}

// NewWhisper builds a transcriber. transcoder resamples input that is not 16 kHz; it may be nil
// when callers guarantee 16 kHz.
func NewWhisper(exec executor.Executor, cfg WhisperConfig, transcoder *Transcoder) *Whisper {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "whisper-cli"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	return &Whisper{exec: exec, cfg: cfg, transcoder: transcoder}
}

// Transcribe converts 16-bit mono PCM to text.
func (w *Whisper) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) < 2 {
		return "", ErrEmptyAudio
	}

	dir, err := os.MkdirTemp("", "stt-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "answer.wav")
	if err := w.writeInput(ctx, wavPath, pcm, sampleRate); err != nil {
		return "", err
	}

	start := time.Now()
	defer func() { metrics.ObserveStage("stt", time.Since(start)) }()

	prefix := filepath.Join(dir, "transcript")
	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-l", w.cfg.Language,
		"-t", strconv.Itoa(w.cfg.Threads),
		"-nt",
		"-otxt",
		"--output-file", prefix,
	}
	if _, err := w.exec.Execute(ctx, w.cfg.BinaryPath, args...); err != nil {
		return "", fmt.Errorf("whisper transcribe: %w", err)
	}

	raw, err := os.ReadFile(prefix + ".txt")
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return cleanTranscript(string(raw)), nil
}

func (w *Whisper) writeInput(ctx context.Context, path string, pcm []byte, sampleRate int) error {
	if sampleRate != TargetSampleRate && w.transcoder != nil {
		f, err := os.CreateTemp(filepath.Dir(path), "raw-*.wav")
		if err != nil {
			return fmt.Errorf("create temp wav: %w", err)
		}
		werr := WriteWAV(f, pcm, sampleRate)
		f.Close()
		if werr != nil {
			return werr
		}
		data, err := os.ReadFile(f.Name())
		if err != nil {
			return err
		}
		resampled, rate, err := w.transcoder.Decode(ctx, data, "answer.wav")
		if err != nil {
			return err
		}
		pcm, sampleRate = resampled, rate
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()
	return WriteWAV(f, pcm, sampleRate)
}

// whisper marks silence and noise with bracketed tags such as [BLANK_AUDIO].
func cleanTranscript(raw string) string {
	var words []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			continue
		}
		if strings.HasPrefix(line, "(") && strings.HasSuffix(line, ")") {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	return strings.Join(words, " ")
}
