package offline

import (
	"context"
	"strings"
	"testing"

	"interview-backend/internal/interview"
)

func TestOpeningQuestionMentionsRole(t *testing.T) {
	q, err := New().OpeningQuestion(context.Background(), "resume", "\n  Senior Backend Engineer\nRequirements: Go")
	if err != nil {
		t.Fatalf("OpeningQuestion: %v", err)
	}
	if !strings.Contains(q, "Senior Backend Engineer") {
		t.Fatalf("expected role in opening question, got %q", q)
	}

	generic, _ := New().OpeningQuestion(context.Background(), "resume", "")
	if generic == "" {
		t.Fatalf("expected generic opening question")
	}
}

func TestNextQuestionDoesNotRepeat(t *testing.T) {
	iv := New()
	ctx := context.Background()
	history := []interview.Exchange{{Question: "opening"}}
	seen := map[string]bool{}
	for i := 0; i < len(questionBank); i++ {
		q, err := iv.NextQuestion(ctx, "r", "j", history)
		if err != nil {
			t.Fatalf("NextQuestion: %v", err)
		}
		if seen[q] {
			t.Fatalf("question repeated at %d: %q", i, q)
		}
		seen[q] = true
		history = append(history, interview.Exchange{Question: q})
	}
}

func TestEvaluateRewardsDetailAndKeywords(t *testing.T) {
	iv := New()
	ctx := context.Background()
	jd := "Backend engineer: Go, PostgreSQL, Kubernetes, observability"

	short, err := iv.Evaluate(ctx, "q", "um I did stuff", "r", jd)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	long := "I migrated our billing service to Go because the Python version could not keep up. " +
		"We moved storage to PostgreSQL with careful indexing, deployed it on Kubernetes with autoscaling, " +
		"and added observability with traces and dashboards so on-call could find regressions quickly. " +
		"The result was a forty percent latency drop and far fewer pages for the team over the next quarter."
	detailed, err := iv.Evaluate(ctx, "q", long, "r", jd)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if detailed.Overall() <= short.Overall() {
		t.Fatalf("detailed answer should score higher: %v vs %v", detailed.Overall(), short.Overall())
	}
	for _, e := range []interview.AnswerEvaluation{short, detailed} {
		for _, s := range []int{e.TechnicalAccuracy, e.Clarity, e.Depth, e.Completeness} {
			if s < 1 || s > 10 {
				t.Fatalf("score out of range: %+v", e)
			}
		}
		if e.ImprovementTip == "" || e.PositiveNote == "" {
			t.Fatalf("expected tip and note: %+v", e)
		}
	}
}
