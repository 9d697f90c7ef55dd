package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"interview-backend/internal/shared/metrics"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ErrRateLimited is returned when the remote TTS provider answers 429.
var ErrRateLimited = errors.New("tts rate limited")

// ElevenLabs synthesizes speech through the ElevenLabs HTTP API.
type ElevenLabs struct {
	apiKey     string
	voiceID    string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs constructs a client. baseURL may be empty for the public API.
func NewElevenLabs(apiKey, voiceID, model, baseURL string) (*ElevenLabs, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("ELEVENLABS_VOICE_ID is required")
	}
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	return &ElevenLabs{
		apiKey:     apiKey,
		voiceID:    voiceID,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize renders text to an MPEG clip.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (Clip, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Clip{}, ErrEmptyText
	}
	start := time.Now()
	defer func() { metrics.ObserveStage("tts", time.Since(start)) }()

	payload, err := json.Marshal(ttsRequest{Text: text, ModelID: e.model})
	if err != nil {
		return Clip{}, err
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + url.PathEscape(e.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Clip{}, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Clip{}, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Clip{}, fmt.Errorf("elevenlabs read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return Clip{}, fmt.Errorf("elevenlabs: %w", ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Clip{}, fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	if len(body) == 0 {
		return Clip{}, fmt.Errorf("elevenlabs returned empty audio")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return Clip{Data: body, ContentType: contentType}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
