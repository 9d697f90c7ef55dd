package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	replies  map[string]string
	failKeys map[string]error
	calls    []string
	jsonMode []bool
}

func (f *fakeGenerator) generate(ctx context.Context, apiKey, model, prompt string, jsonMode bool) (string, error) {
	f.calls = append(f.calls, apiKey)
	f.jsonMode = append(f.jsonMode, jsonMode)
	if err, ok := f.failKeys[apiKey]; ok {
		return "", err
	}
	return f.replies[apiKey], nil
}

func newTestClient(t *testing.T, gen *fakeGenerator, keys ...string) *Client {
	t.Helper()
	c, err := NewClient(keys, "")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.gen = gen
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient([]string{" ", ""}, "gemini-2.0-flash"); err == nil {
		t.Fatalf("expected error without keys")
	}
}

func TestOpeningQuestionCleansReply(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"k1": "Question: \"Tell me about yourself.\"\n"}}
	c := newTestClient(t, gen, "k1")

	q, err := c.OpeningQuestion(context.Background(), "resume", "jd")
	if err != nil {
		t.Fatalf("OpeningQuestion: %v", err)
	}
	if q != "Tell me about yourself." {
		t.Fatalf("unexpected question %q", q)
	}
	if gen.jsonMode[0] {
		t.Fatalf("questions should not use json mode")
	}
}

func TestRotatesKeyOnQuotaError(t *testing.T) {
	gen := &fakeGenerator{
		replies:  map[string]string{"k2": "What is a goroutine?"},
		failKeys: map[string]error{"k1": errors.New("Error 429, Message: RESOURCE_EXHAUSTED")},
	}
	c := newTestClient(t, gen, "k1", "k2")

	q, err := c.NextQuestion(context.Background(), "resume", "jd", nil)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q != "What is a goroutine?" {
		t.Fatalf("unexpected question %q", q)
	}
	if strings.Join(gen.calls, ",") != "k1,k2" {
		t.Fatalf("unexpected key order %v", gen.calls)
	}

	// rotation sticks for later calls
	if _, err := c.OpeningQuestion(context.Background(), "resume", "jd"); err != nil {
		t.Fatalf("OpeningQuestion: %v", err)
	}
	if gen.calls[2] != "k2" {
		t.Fatalf("expected k2 to stay current, got %s", gen.calls[2])
	}
}

func TestAllKeysExhausted(t *testing.T) {
	quota := errors.New("quota exceeded")
	gen := &fakeGenerator{failKeys: map[string]error{"k1": quota, "k2": quota}}
	c := newTestClient(t, gen, "k1", "k2")

	if _, err := c.OpeningQuestion(context.Background(), "r", "j"); !errors.Is(err, ErrKeysExhausted) {
		t.Fatalf("expected ErrKeysExhausted, got %v", err)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("expected each key tried once, got %v", gen.calls)
	}
}

func TestNonQuotaErrorDoesNotRotate(t *testing.T) {
	gen := &fakeGenerator{failKeys: map[string]error{"k1": errors.New("invalid argument")}}
	c := newTestClient(t, gen, "k1", "k2")

	if _, err := c.OpeningQuestion(context.Background(), "r", "j"); err == nil {
		t.Fatalf("expected error")
	}
	if len(gen.calls) != 1 {
		t.Fatalf("expected single attempt, got %v", gen.calls)
	}
}

func TestEvaluateParsesJSON(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"k1": "```json\n{\"technical_accuracy\": 9, \"clarity\": 7.6, \"depth\": 6, \"completeness\": 12, \"improvement_tip\": \"Mention trade-offs.\", \"positive_note\": \"Clear example.\"}\n```"}}
	c := newTestClient(t, gen, "k1")

	eval, err := c.Evaluate(context.Background(), "q", "a", "r", "j")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.TechnicalAccuracy != 9 || eval.Clarity != 8 || eval.Depth != 6 || eval.Completeness != 10 {
		t.Fatalf("unexpected scores %+v", eval)
	}
	if eval.ImprovementTip != "Mention trade-offs." {
		t.Fatalf("unexpected tip %q", eval.ImprovementTip)
	}
	if !gen.jsonMode[0] {
		t.Fatalf("evaluation should use json mode")
	}
}

func TestEvaluateFallsBackToNeutral(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"k1": "I cannot grade this."}}
	c := newTestClient(t, gen, "k1")

	eval, err := c.Evaluate(context.Background(), "q", "a", "r", "j")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.Overall() != 5 {
		t.Fatalf("expected neutral evaluation, got %+v", eval)
	}
}

func TestEmptyReplyIsError(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"k1": "  "}}
	c := newTestClient(t, gen, "k1")
	if _, err := c.OpeningQuestion(context.Background(), "r", "j"); err == nil {
		t.Fatalf("expected error for empty reply")
	}
}
