package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"interview-backend/internal/interview"
)

// ErrNoJSON is returned when a model reply contains no JSON object.
var ErrNoJSON = errors.New("no json object in response")

type rawEvaluation struct {
	TechnicalAccuracy json.Number `json:"technical_accuracy"`
	Clarity           json.Number `json:"clarity"`
	Depth             json.Number `json:"depth"`
	Completeness      json.Number `json:"completeness"`
	ImprovementTip    string      `json:"improvement_tip"`
	PositiveNote      string      `json:"positive_note"`
}

// ParseEvaluation extracts an evaluation from a model reply. It tolerates code fences,
// surrounding prose and fractional scores; scores are clamped to 1..10.
func ParseEvaluation(reply string) (interview.AnswerEvaluation, error) {
	obj, err := extractJSONObject(reply)
	if err != nil {
		return interview.AnswerEvaluation{}, err
	}
	var raw rawEvaluation
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return interview.AnswerEvaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}

	eval := interview.AnswerEvaluation{
		TechnicalAccuracy: score(raw.TechnicalAccuracy),
		Clarity:           score(raw.Clarity),
		Depth:             score(raw.Depth),
		Completeness:      score(raw.Completeness),
		ImprovementTip:    strings.TrimSpace(raw.ImprovementTip),
		PositiveNote:      strings.TrimSpace(raw.PositiveNote),
	}
	return eval.Clamped(), nil
}

// NeutralEvaluation is used when the model reply cannot be graded.
func NeutralEvaluation() interview.AnswerEvaluation {
	return interview.AnswerEvaluation{
		TechnicalAccuracy: 5,
		Clarity:           5,
		Depth:             5,
		Completeness:      5,
		ImprovementTip:    "Structure your answer: context, what you did, and the result.",
		PositiveNote:      "Thanks for the answer; automatic grading was unavailable this time.",
	}
}

// CleanQuestion strips formatting models add around a spoken question.
func CleanQuestion(reply string) string {
	q := strings.TrimSpace(reply)
	q = strings.Trim(q, "`")
	for _, prefix := range []string{"Question:", "question:", "Interviewer:", "**Question:**"} {
		q = strings.TrimSpace(strings.TrimPrefix(q, prefix))
	}
	q = strings.Trim(q, `"*`)
	return strings.Join(strings.Fields(q), " ")
}

func extractJSONObject(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

func score(n json.Number) int {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return int(math.Round(f))
}
