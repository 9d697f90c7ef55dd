package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"interview-backend/internal/shared/executor"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/util"
)

// TargetSampleRate is what whisper.cpp expects.
const TargetSampleRate = 16000

// Transcoder converts uploaded audio containers (webm, ogg, mp3, m4a, wav) to mono PCM with ffmpeg.
type Transcoder struct {
	exec   executor.Executor
	ffmpeg string
}

// NewTranscoder builds a Transcoder that runs the ffmpeg binary at path.
func NewTranscoder(exec executor.Executor, path string) *Transcoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &Transcoder{exec: exec, ffmpeg: path}
}

// Decode returns 16 kHz 16-bit mono PCM for any container ffmpeg understands.
func (t *Transcoder) Decode(ctx context.Context, data []byte, fileName string) ([]byte, int, error) {
	if len(data) == 0 {
		return nil, 0, ErrEmptyAudio
	}
	start := time.Now()
	defer func() { metrics.ObserveStage("transcode", time.Since(start)) }()

	dir, err := os.MkdirTemp("", "answer-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		name = "answer.bin"
	}
	in := filepath.Join(dir, "in_"+name)
	out := filepath.Join(dir, "out.wav")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, 0, fmt.Errorf("write input: %w", err)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-vn",
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y",
		out,
	}
	if _, err := t.exec.Execute(ctx, t.ffmpeg, args...); err != nil {
		return nil, 0, fmt.Errorf("ffmpeg transcode: %w", err)
	}

	wavData, err := os.ReadFile(out)
	if err != nil {
		return nil, 0, fmt.Errorf("read transcoded audio: %w", err)
	}
	decoded, err := DecodeWAV(wavData)
	if err != nil {
		return nil, 0, err
	}
	return decoded.PCM(), decoded.SampleRate, nil
}
