package llm

import (
	_ "embed"
	"fmt"
	"strings"

	"interview-backend/internal/interview"
)

var (
	//go:embed prompts/opening.txt
	openingTemplate string
	//go:embed prompts/question.txt
	questionTemplate string
	//go:embed prompts/evaluate.txt
	evaluateTemplate string
)

const noJobDescription = "(not provided; assume a general software engineering role)"

// resumes and transcripts can be long; keep prompts bounded.
const maxSectionChars = 8000

// OpeningPrompt builds the prompt for the first question.
func OpeningPrompt(resume, jobDescription string) string {
	return strings.NewReplacer(
		"{{RESUME}}", section(resume),
		"{{JOB_DESCRIPTION}}", jobSection(jobDescription),
	).Replace(openingTemplate)
}

// QuestionPrompt builds the prompt for a follow-up question.
func QuestionPrompt(resume, jobDescription string, history []interview.Exchange) string {
	return strings.NewReplacer(
		"{{RESUME}}", section(resume),
		"{{JOB_DESCRIPTION}}", jobSection(jobDescription),
		"{{HISTORY}}", FormatHistory(history),
	).Replace(questionTemplate)
}

// EvaluationPrompt builds the grading prompt.
func EvaluationPrompt(question, answer, resume, jobDescription string) string {
	return strings.NewReplacer(
		"{{RESUME}}", section(resume),
		"{{JOB_DESCRIPTION}}", jobSection(jobDescription),
		"{{QUESTION}}", strings.TrimSpace(question),
		"{{ANSWER}}", section(answer),
	).Replace(evaluateTemplate)
}

// FormatHistory renders previous exchanges as a numbered transcript.
func FormatHistory(history []interview.Exchange) string {
	if len(history) == 0 {
		return "(no previous questions)"
	}
	var b strings.Builder
	for i, ex := range history {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, strings.TrimSpace(ex.Question), i+1, strings.TrimSpace(ex.Answer))
		if ex.Evaluation != nil {
			fmt.Fprintf(&b, "(score %.1f/10)\n", ex.Evaluation.Overall())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func section(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxSectionChars {
		s = s[:maxSectionChars]
	}
	return s
}

func jobSection(jd string) string {
	if strings.TrimSpace(jd) == "" {
		return noJobDescription
	}
	return section(jd)
}
