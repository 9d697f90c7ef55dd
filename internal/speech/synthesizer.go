package speech

import (
	"context"
	"errors"

	"interview-backend/internal/shared/telemetry"
)

// Synthesizer turns text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Clip, error)
}

// Fallback tries Primary and uses Secondary when it fails.
type Fallback struct {
	Primary   Synthesizer
	Secondary Synthesizer
}

// Synthesize implements Synthesizer.
func (f Fallback) Synthesize(ctx context.Context, text string) (Clip, error) {
	clip, err := f.Primary.Synthesize(ctx, text)
	if err == nil {
		return clip, nil
	}
	if errors.Is(err, ErrEmptyText) || ctx.Err() != nil {
		return Clip{}, err
	}
	telemetry.Warn("tts.fallback", map[string]any{"error": err.Error()})
	return f.Secondary.Synthesize(ctx, text)
}
