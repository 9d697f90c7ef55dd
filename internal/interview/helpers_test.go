package interview

import (
	"context"
	"sync"

	"interview-backend/internal/speech"
)

const sampleResume = `
John Doe
Senior Software Engineer

Experience:
- 5 years with Go, PostgreSQL
- Led team of 3 engineers
- Built microservices for payment processing
`

const sampleJobDescription = `
Senior Backend Engineer
Requirements:
- 5+ years backend experience
- System design knowledge
`

type fakeInterviewer struct {
	mu            sync.Mutex
	openingCalls  int
	questionCalls int
	evaluateCalls int
	lastHistory   []Exchange
	err           error
	evalErr       error
	evaluation    AnswerEvaluation
}

func newFakeInterviewer() *fakeInterviewer {
	return &fakeInterviewer{evaluation: AnswerEvaluation{
		TechnicalAccuracy: 8,
		Clarity:           8,
		Depth:             7,
		Completeness:      8,
		ImprovementTip:    "Could add more specific examples.",
		PositiveNote:      "Great explanation of design patterns.",
	}}
}

func (f *fakeInterviewer) OpeningQuestion(ctx context.Context, resume, jd string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openingCalls++
	if f.err != nil {
		return "", f.err
	}
	return "Tell me about yourself and your background.", nil
}

func (f *fakeInterviewer) NextQuestion(ctx context.Context, resume, jd string, history []Exchange) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questionCalls++
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	return "What's your experience with Go?", nil
}

func (f *fakeInterviewer) Evaluate(ctx context.Context, question, answer, resume, jd string) (AnswerEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluateCalls++
	if f.evalErr != nil {
		return AnswerEvaluation{}, f.evalErr
	}
	return f.evaluation, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeSynthesizer struct {
	calls int
	err   error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string) (speech.Clip, error) {
	f.calls++
	if f.err != nil {
		return speech.Clip{}, f.err
	}
	if text == "" {
		return speech.Clip{}, speech.ErrEmptyText
	}
	return speech.Clip{Data: []byte("audio_bytes"), ContentType: "audio/wav"}, nil
}

type fakeCoach struct {
	analyzeCalls int
	resets       int
	seeded       []float64
	wpm          float64
}

func (f *fakeCoach) Analyze(transcript string, pcm []byte, sampleRate int) CoachingFeedback {
	f.analyzeCalls++
	f.wpm = 125
	return CoachingFeedback{
		VolumeStatus:   "OK",
		PaceStatus:     "OK",
		FillerCount:    2,
		WordsPerMinute: 125,
		AlertLevel:     AlertOK,
	}
}

func (f *fakeCoach) AverageWPM() float64 { return f.wpm }
func (f *fakeCoach) Reset()              { f.resets++; f.wpm = 0 }
func (f *fakeCoach) Seed(wpm []float64) {
	f.seeded = wpm
	if len(wpm) > 0 {
		f.wpm = wpm[len(wpm)-1]
	}
}

type fixture struct {
	interviewer *fakeInterviewer
	stt         *fakeTranscriber
	tts         *fakeSynthesizer
	coach       *fakeCoach
}

func newFixture() *fixture {
	return &fixture{
		interviewer: newFakeInterviewer(),
		stt:         &fakeTranscriber{text: "I have five years of experience with Go and PostgreSQL."},
		tts:         &fakeSynthesizer{},
		coach:       &fakeCoach{},
	}
}

func (f *fixture) components() Components {
	return Components{Interviewer: f.interviewer, Transcriber: f.stt, Synthesizer: f.tts, Coach: f.coach}
}

var answerAudio = []byte("audio_data")
