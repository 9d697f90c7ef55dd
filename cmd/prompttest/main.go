package main

// Try the interviewer prompts against a real resume:
//   go run ./cmd/prompttest -resume cv.pdf -jd role.txt -answer "I led the migration to Go."

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"interview-backend/internal/extract"
	"interview-backend/internal/interview"
	"interview-backend/internal/llm/gemini"
	"interview-backend/internal/llm/offline"
	"interview-backend/internal/llm/openai"
	"interview-backend/internal/shared/config"
)

type result struct {
	Provider        string                      `json:"provider"`
	ResumeMimeType  string                      `json:"resume_mime_type"`
	ResumeChars     int                         `json:"resume_chars"`
	OpeningQuestion string                      `json:"opening_question"`
	FollowUp        string                      `json:"follow_up_question,omitempty"`
	Evaluation      *interview.AnswerEvaluation `json:"evaluation,omitempty"`
	OverallScore    float64                     `json:"overall_score,omitempty"`
}

func main() {
	cfg := config.Load()

	resumePath := flag.String("resume", "", "Path to resume file (pdf, docx or txt)")
	jdPath := flag.String("jd", "", "Path to job description file (optional)")
	answer := flag.String("answer", "", "Answer to the opening question to evaluate (optional)")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider: gemini, openai or offline")
	flag.Parse()

	if strings.TrimSpace(*resumePath) == "" {
		exitErr("resume path is required")
	}
	ctx := context.Background()

	resumeBytes, err := os.ReadFile(*resumePath)
	if err != nil {
		exitErr(fmt.Sprintf("read resume: %v", err))
	}
	resumeText, mimeType, err := extract.Text(ctx, resumeBytes, "", filepath.Base(*resumePath))
	if err != nil {
		exitErr(fmt.Sprintf("extract resume text: %v", err))
	}

	jobDescription := ""
	if strings.TrimSpace(*jdPath) != "" {
		jdBytes, err := os.ReadFile(*jdPath)
		if err != nil {
			exitErr(fmt.Sprintf("read job description: %v", err))
		}
		jobDescription = string(jdBytes)
	}

	client, err := buildClient(cfg, *provider)
	if err != nil {
		exitErr(err.Error())
	}

	out := result{Provider: *provider, ResumeMimeType: mimeType, ResumeChars: len([]rune(resumeText))}
	out.OpeningQuestion, err = client.OpeningQuestion(ctx, resumeText, jobDescription)
	if err != nil {
		exitErr(fmt.Sprintf("opening question: %v", err))
	}

	if strings.TrimSpace(*answer) != "" {
		eval, err := client.Evaluate(ctx, out.OpeningQuestion, *answer, resumeText, jobDescription)
		if err != nil {
			exitErr(fmt.Sprintf("evaluate: %v", err))
		}
		out.Evaluation = &eval
		out.OverallScore = eval.Overall()

		history := []interview.Exchange{{Question: out.OpeningQuestion, Answer: *answer, Evaluation: &eval}}
		out.FollowUp, err = client.NextQuestion(ctx, resumeText, jobDescription, history)
		if err != nil {
			exitErr(fmt.Sprintf("next question: %v", err))
		}
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func buildClient(cfg config.Config, provider string) (interview.Interviewer, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini":
		return gemini.NewClient(cfg.GeminiAPIKeys, cfg.GeminiModel)
	case "openai":
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, os.Getenv("OPENAI_BASE_URL"))
	case "", "offline":
		return offline.New(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
