// Package offline provides a deterministic interviewer that needs no network access.
package offline

import (
	"context"
	"fmt"
	"strings"

	"interview-backend/internal/coach"
	"interview-backend/internal/interview"
)

var questionBank = []string{
	"Walk me through a recent project you are proud of. What was your role and what was the outcome?",
	"Describe a difficult bug you tracked down. How did you find the root cause?",
	"How would you design a service that has to handle ten times its current traffic?",
	"Tell me about a time you disagreed with a teammate on a technical decision. How was it resolved?",
	"How do you make sure the code you ship is correct and stays maintainable?",
	"Explain a trade-off you made between speed of delivery and quality.",
	"How do you approach learning a technology you have never used before?",
	"Describe how you would debug a service whose latency suddenly doubled in production.",
	"What does good observability look like for a backend system?",
	"Where do you want to grow technically over the next two years?",
}

var stopwords = map[string]struct{}{
	"with": {}, "that": {}, "this": {}, "have": {}, "from": {}, "will": {}, "your": {},
	"years": {}, "experience": {}, "work": {}, "team": {}, "about": {}, "they": {},
	"their": {}, "what": {}, "when": {}, "where": {}, "which": {}, "would": {}, "should": {},
	"must": {}, "able": {}, "strong": {}, "knowledge": {}, "skills": {}, "role": {},
}

// Interviewer asks questions from a fixed bank and scores answers heuristically.
type Interviewer struct{}

// New returns an offline interviewer.
func New() *Interviewer { return &Interviewer{} }

// OpeningQuestion greets the candidate, mentioning the role when one is given.
func (Interviewer) OpeningQuestion(ctx context.Context, resume, jobDescription string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if title := firstLine(jobDescription); title != "" {
		return fmt.Sprintf("Welcome! Let's start: tell me about yourself and why you are a good fit for the %s position.", title), nil
	}
	return "Welcome! Let's start: tell me about yourself and the experience most relevant to this role.", nil
}

// NextQuestion draws the next unused question from the bank.
func (Interviewer) NextQuestion(ctx context.Context, resume, jobDescription string, history []interview.Exchange) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	asked := make(map[string]struct{}, len(history))
	for _, ex := range history {
		asked[ex.Question] = struct{}{}
	}
	start := len(history) - 1
	if start < 0 {
		start = 0
	}
	for i := 0; i < len(questionBank); i++ {
		q := questionBank[(start+i)%len(questionBank)]
		if _, ok := asked[q]; !ok {
			return q, nil
		}
	}
	return questionBank[start%len(questionBank)], nil
}

// Evaluate scores an answer from its length, filler use and overlap with the job description.
func (Interviewer) Evaluate(ctx context.Context, question, answer, resume, jobDescription string) (interview.AnswerEvaluation, error) {
	if err := ctx.Err(); err != nil {
		return interview.AnswerEvaluation{}, err
	}
	words := coach.Words(answer)
	n := len(words)
	fillers := coach.CountFillers(answer)
	overlap := keywordOverlap(words, jobDescription)

	depth := lengthScore(n)
	completeness := lengthScore(n)
	if strings.Contains(strings.ToLower(answer), "because") || strings.Contains(strings.ToLower(answer), "result") {
		completeness++
	}
	clarity := 8 - fillers/2
	if n < 10 {
		clarity -= 2
	}
	technical := 5 + overlap
	if n < 10 {
		technical -= 2
	}

	eval := interview.AnswerEvaluation{
		TechnicalAccuracy: technical,
		Clarity:           clarity,
		Depth:             depth,
		Completeness:      completeness,
		ImprovementTip:    tip(n, fillers, overlap, jobDescription),
		PositiveNote:      note(n, fillers, overlap),
	}
	return eval.Clamped(), nil
}

func lengthScore(n int) int {
	switch {
	case n < 15:
		return 3
	case n < 40:
		return 5
	case n < 90:
		return 7
	default:
		return 8
	}
}

func keywordOverlap(answer []string, jobDescription string) int {
	keywords := make(map[string]struct{})
	for _, w := range coach.Words(jobDescription) {
		if len(w) < 4 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		keywords[w] = struct{}{}
	}
	hits := make(map[string]struct{})
	for _, w := range answer {
		if _, ok := keywords[w]; ok {
			hits[w] = struct{}{}
		}
	}
	if len(hits) > 5 {
		return 5
	}
	return len(hits)
}

func tip(n, fillers, overlap int, jobDescription string) string {
	switch {
	case n < 40:
		return "Give a longer answer with a concrete example: the situation, what you did, and the result."
	case fillers >= 4:
		return "Replace filler words with a short pause; it sounds more confident."
	case overlap == 0 && strings.TrimSpace(jobDescription) != "":
		return "Tie your answer back to the skills the role asks for."
	default:
		return "Quantify the impact of your work where you can."
	}
}

func note(n, fillers, overlap int) string {
	switch {
	case overlap >= 3:
		return "Good use of the skills the role is looking for."
	case n >= 90:
		return "Thorough answer with plenty of detail."
	case fillers == 0 && n > 0:
		return "Clean delivery without filler words."
	default:
		return "Thanks for the answer, keep going."
	}
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if len(line) > 80 {
				return ""
			}
			return line
		}
	}
	return ""
}

var _ interview.Interviewer = Interviewer{}
