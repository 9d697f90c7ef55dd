package interview

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/speech"
)

// DefaultMaxQuestions caps an interview when no limit is configured.
const DefaultMaxQuestions = 10

// Components are the collaborators an Orchestrator drives.
type Components struct {
	Interviewer Interviewer
	Transcriber Transcriber
	Synthesizer Synthesizer
	Coach       Coach
}

// Orchestrator runs a single interview session through its state machine.
// It is not safe for concurrent use; callers serialize access per session.
type Orchestrator struct {
	c            Components
	maxQuestions int
	now          func() time.Time

	session *Session
	state   State

	onStateChange func(State)
	onQuestion    func(string)
	onFeedback    func(CoachingFeedback)
}

// NewOrchestrator builds an idle orchestrator. maxQuestions <= 0 uses DefaultMaxQuestions.
func NewOrchestrator(c Components, maxQuestions int) *Orchestrator {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &Orchestrator{
		c:            c,
		maxQuestions: maxQuestions,
		now:          func() time.Time { return time.Now().UTC() },
		state:        StateIdle,
	}
}

// OnStateChange registers a callback fired after every transition.
func (o *Orchestrator) OnStateChange(fn func(State)) { o.onStateChange = fn }

// OnQuestion registers a callback fired when a question is asked.
func (o *Orchestrator) OnQuestion(fn func(string)) { o.onQuestion = fn }

// OnFeedback registers a callback fired when an answer has been coached.
func (o *Orchestrator) OnFeedback(fn func(CoachingFeedback)) { o.onFeedback = fn }

// State returns the current state, IDLE when there is no session.
func (o *Orchestrator) State() State { return o.state }

// Session returns the active session or nil.
func (o *Orchestrator) Session() *Session { return o.session }

// Start opens a new session and leaves it in INTRO.
func (o *Orchestrator) Start(resumeText, jobDescription string) (string, error) {
	if strings.TrimSpace(resumeText) == "" {
		return "", fmt.Errorf("%w: resume text is required", ErrInvalidInput)
	}

	now := o.now()
	o.c.Coach.Reset()
	o.session = &Session{
		SessionID:      uuid.NewString(),
		ResumeText:     resumeText,
		JobDescription: jobDescription,
		StartedAt:      &now,
		Exchanges:      []Exchange{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.setState(StateSetup)
	o.setState(StateIntro)

	telemetry.Debug("orchestrator.started", map[string]any{"session_id": o.session.SessionID})
	return o.session.SessionID, nil
}

// NextQuestion asks the opening question, or a follow-up built from the history so far.
func (o *Orchestrator) NextQuestion(ctx context.Context) (string, error) {
	if o.session == nil {
		return "", ErrNoSession
	}
	if err := requireState("get next question", o.state, StateIntro, StateEvaluating); err != nil {
		return "", err
	}
	if o.session.TotalQuestionsAsked >= o.maxQuestions {
		return "", ErrInterviewFinished
	}

	prev := o.state
	o.setState(StateAsking)

	var (
		question string
		err      error
	)
	s := o.session
	if s.TotalQuestionsAsked == 0 {
		question, err = o.c.Interviewer.OpeningQuestion(ctx, s.ResumeText, s.JobDescription)
	} else {
		history := make([]Exchange, len(s.Exchanges))
		copy(history, s.Exchanges)
		question, err = o.c.Interviewer.NextQuestion(ctx, s.ResumeText, s.JobDescription, history)
	}
	question = strings.TrimSpace(question)
	if err == nil && question == "" {
		err = errors.New("empty question")
	}
	if err != nil {
		o.setState(prev)
		return "", fmt.Errorf("%w: generate question: %w", ErrUpstream, err)
	}

	s.CurrentQuestion = question
	s.TotalQuestionsAsked++
	o.setState(StateListening)
	if o.onQuestion != nil {
		o.onQuestion(question)
	}
	return question, nil
}

// ProcessAnswer transcribes, grades and coaches a spoken answer given as 16-bit mono PCM.
// On failure the session goes back to LISTENING so the answer can be retried.
func (o *Orchestrator) ProcessAnswer(ctx context.Context, pcm []byte, sampleRate int) (AnswerResult, error) {
	if o.session == nil {
		return AnswerResult{}, ErrNoSession
	}
	if err := requireState("process answer", o.state, StateListening); err != nil {
		return AnswerResult{}, err
	}
	if len(pcm) == 0 {
		return AnswerResult{}, fmt.Errorf("%w: audio is empty", ErrInvalidInput)
	}
	if sampleRate <= 0 {
		return AnswerResult{}, fmt.Errorf("%w: sample rate must be positive", ErrInvalidInput)
	}

	o.setState(StateProcessing)
	s := o.session

	transcript, err := o.c.Transcriber.Transcribe(ctx, pcm, sampleRate)
	if err != nil {
		o.setState(StateListening)
		return AnswerResult{}, fmt.Errorf("%w: transcribe: %w", ErrUpstream, err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		o.setState(StateListening)
		return AnswerResult{}, fmt.Errorf("%w: no speech detected", ErrInvalidInput)
	}

	evaluation, err := o.c.Interviewer.Evaluate(ctx, s.CurrentQuestion, transcript, s.ResumeText, s.JobDescription)
	if err != nil {
		o.setState(StateListening)
		return AnswerResult{}, fmt.Errorf("%w: evaluate answer: %w", ErrUpstream, err)
	}
	evaluation = evaluation.Clamped()

	coaching := o.c.Coach.Analyze(transcript, pcm, sampleRate)

	s.Exchanges = append(s.Exchanges, Exchange{
		Question:              s.CurrentQuestion,
		Answer:                transcript,
		AnswerDurationSeconds: speech.PCMDuration(len(pcm), sampleRate).Seconds(),
		Evaluation:            &evaluation,
		CoachingFeedback:      &coaching,
		Timestamp:             o.now(),
	})
	s.TotalFillerWords += coaching.FillerCount
	s.AverageWPM = o.c.Coach.AverageWPM()

	o.setState(StateEvaluating)
	if o.onFeedback != nil {
		o.onFeedback(coaching)
	}

	return AnswerResult{Transcript: transcript, Coaching: coaching, Evaluation: evaluation}, nil
}

// End completes the interview and summarises it. Ending a completed session returns the same summary.
func (o *Orchestrator) End() (Summary, error) {
	if o.session == nil {
		return Summary{}, ErrNoSession
	}
	s := o.session
	if o.state != StateComplete {
		now := o.now()
		s.EndedAt = &now
		o.setState(StateComplete)
	}

	var duration float64
	if s.StartedAt != nil && s.EndedAt != nil {
		duration = s.EndedAt.Sub(*s.StartedAt).Seconds()
	}

	exchanges := make([]Exchange, len(s.Exchanges))
	copy(exchanges, s.Exchanges)
	return Summary{
		SessionID:       s.SessionID,
		TotalQuestions:  s.TotalQuestionsAsked,
		AverageScore:    round1(s.AverageScore()),
		AverageWPM:      round1(s.AverageWPM),
		TotalFillers:    s.TotalFillerWords,
		DurationSeconds: round1(duration),
		Exchanges:       exchanges,
	}, nil
}

// SpeakQuestion synthesizes text, usually the current question.
func (o *Orchestrator) SpeakQuestion(ctx context.Context, text string) (speech.Clip, error) {
	clip, err := o.c.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		if errors.Is(err, speech.ErrEmptyText) {
			return speech.Clip{}, fmt.Errorf("%w: text is required", ErrInvalidInput)
		}
		return speech.Clip{}, fmt.Errorf("%w: synthesize: %w", ErrUpstream, err)
	}
	return clip, nil
}

// Stats reports running numbers for the session; empty without one.
func (o *Orchestrator) Stats() map[string]any {
	if o.session == nil {
		return map[string]any{}
	}
	s := o.session
	return map[string]any{
		"questions_asked": s.TotalQuestionsAsked,
		"answers_given":   len(s.Exchanges),
		"average_score":   round1(s.AverageScore()),
		"average_wpm":     round1(s.AverageWPM),
		"total_fillers":   s.TotalFillerWords,
		"state":           string(o.state),
	}
}

// Reset drops the session and returns to IDLE.
func (o *Orchestrator) Reset() {
	o.session = nil
	o.c.Coach.Reset()
	o.setState(StateIdle)
}

// Restore resumes a persisted session. Callbacks do not fire.
func (o *Orchestrator) Restore(s *Session) {
	o.session = s
	o.state = s.State
	if o.state == "" {
		o.state = StateIdle
	}
	o.c.Coach.Reset()
	if seeder, ok := o.c.Coach.(coachSeeder); ok {
		var wpm []float64
		for _, ex := range s.Exchanges {
			if ex.CoachingFeedback != nil && ex.CoachingFeedback.WordsPerMinute > 0 {
				wpm = append(wpm, ex.CoachingFeedback.WordsPerMinute)
			}
		}
		seeder.Seed(wpm)
	}
}

func (o *Orchestrator) setState(to State) {
	o.state = to
	if o.session != nil {
		o.session.State = to
		o.session.UpdatedAt = o.now()
	}
	if o.onStateChange != nil {
		o.onStateChange(to)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
