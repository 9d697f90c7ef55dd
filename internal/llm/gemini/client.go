package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"interview-backend/internal/interview"
	"interview-backend/internal/llm"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

const defaultModel = "gemini-2.0-flash"

// ErrKeysExhausted is returned when every configured key was rate limited.
var ErrKeysExhausted = errors.New("all gemini api keys exhausted")

type generator interface {
	generate(ctx context.Context, apiKey, model, prompt string, jsonMode bool) (string, error)
}

// Client implements interview.Interviewer on the Gemini API.
type Client struct {
	model string
	gen   generator

	mu      sync.Mutex
	keys    []string
	current int
}

// NewClient constructs a Gemini interviewer. Keys are tried in order and rotated on quota errors.
func NewClient(apiKeys []string, model string) (*Client, error) {
	keys := make([]string, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Client{model: model, keys: keys, gen: &sdkGenerator{clients: map[string]*genai.Client{}}}, nil
}

// OpeningQuestion asks for the first interview question.
func (c *Client) OpeningQuestion(ctx context.Context, resume, jobDescription string) (string, error) {
	reply, err := c.call(ctx, llm.OpeningPrompt(resume, jobDescription), false)
	if err != nil {
		return "", err
	}
	return llm.CleanQuestion(reply), nil
}

// NextQuestion asks for a follow-up question given the history.
func (c *Client) NextQuestion(ctx context.Context, resume, jobDescription string, history []interview.Exchange) (string, error) {
	reply, err := c.call(ctx, llm.QuestionPrompt(resume, jobDescription, history), false)
	if err != nil {
		return "", err
	}
	return llm.CleanQuestion(reply), nil
}

// Evaluate grades an answer. A reply that cannot be parsed yields a neutral evaluation.
func (c *Client) Evaluate(ctx context.Context, question, answer, resume, jobDescription string) (interview.AnswerEvaluation, error) {
	reply, err := c.call(ctx, llm.EvaluationPrompt(question, answer, resume, jobDescription), true)
	if err != nil {
		return interview.AnswerEvaluation{}, err
	}
	eval, err := llm.ParseEvaluation(reply)
	if err != nil {
		telemetry.Warn("gemini.evaluation_unparsed", map[string]any{"error": err.Error(), "reply_len": len(reply)})
		return llm.NeutralEvaluation(), nil
	}
	return eval, nil
}

func (c *Client) call(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage("llm", time.Since(start)) }()

	c.mu.Lock()
	attempts := len(c.keys)
	c.mu.Unlock()

	var lastErr error
	for range attempts {
		key, idx := c.currentKey()
		text, err := c.gen.generate(ctx, key, c.model, prompt, jsonMode)
		if err != nil {
			if isQuotaError(err) {
				telemetry.Warn("gemini.key_rate_limited", map[string]any{"key_index": idx})
				c.rotate(idx)
				lastErr = err
				continue
			}
			return "", fmt.Errorf("gemini generate: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("empty response from gemini")
		}
		return text, nil
	}
	return "", fmt.Errorf("%w: %w", ErrKeysExhausted, lastErr)
}

func (c *Client) currentKey() (string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[c.current], c.current
}

// rotate advances past idx unless another caller already did.
func (c *Client) rotate(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == idx {
		c.current = (c.current + 1) % len(c.keys)
	}
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

type sdkGenerator struct {
	mu      sync.Mutex
	clients map[string]*genai.Client
}

func (g *sdkGenerator) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cl, ok := g.clients[apiKey]; ok {
		return cl, nil
	}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	g.clients[apiKey] = cl
	return cl, nil
}

func (g *sdkGenerator) generate(ctx context.Context, apiKey, model, prompt string, jsonMode bool) (string, error) {
	cl, err := g.client(ctx, apiKey)
	if err != nil {
		return "", err
	}

	temp := float32(0.7)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if jsonMode {
		cfg.ResponseMIMEType = "application/json"
		low := float32(0.2)
		cfg.Temperature = &low
	}

	result, err := cl.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

var _ interview.Interviewer = (*Client)(nil)
