package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"interview-backend/internal/interview"
	"interview-backend/internal/llm"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements interview.Interviewer using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. baseURL may be empty for the public API.
func NewClient(apiKey, model, baseURL string) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("OPENAI_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// OpeningQuestion asks for the first interview question.
func (c *Client) OpeningQuestion(ctx context.Context, resume, jobDescription string) (string, error) {
	reply, err := c.complete(ctx, llm.OpeningPrompt(resume, jobDescription), false)
	if err != nil {
		return "", err
	}
	return llm.CleanQuestion(reply), nil
}

// NextQuestion asks for a follow-up question given the history.
func (c *Client) NextQuestion(ctx context.Context, resume, jobDescription string, history []interview.Exchange) (string, error) {
	reply, err := c.complete(ctx, llm.QuestionPrompt(resume, jobDescription, history), false)
	if err != nil {
		return "", err
	}
	return llm.CleanQuestion(reply), nil
}

// Evaluate grades an answer with json_object output. Unparseable replies yield a neutral evaluation.
func (c *Client) Evaluate(ctx context.Context, question, answer, resume, jobDescription string) (interview.AnswerEvaluation, error) {
	reply, err := c.complete(ctx, llm.EvaluationPrompt(question, answer, resume, jobDescription), true)
	if err != nil {
		return interview.AnswerEvaluation{}, err
	}
	eval, err := llm.ParseEvaluation(reply)
	if err != nil {
		telemetry.Warn("openai.evaluation_unparsed", map[string]any{"error": err.Error(), "reply_len": len(reply)})
		return llm.NeutralEvaluation(), nil
	}
	return eval, nil
}

func (c *Client) complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage("llm", time.Since(start)) }()

	temp := float32(0.7)
	reqBody := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}
	if jsonMode {
		temp = 0.2
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	reqBody.Temperature = &temp
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openai response parse (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content")
	}
	if parsed.Usage != nil {
		telemetry.Debug("openai.usage", map[string]any{
			"model":             c.model,
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		})
	}
	return content, nil
}

var _ interview.Interviewer = (*Client)(nil)
