package interview

import (
	"context"

	"interview-backend/internal/speech"
)

// Interviewer generates questions and grades answers.
type Interviewer interface {
	OpeningQuestion(ctx context.Context, resume, jobDescription string) (string, error)
	NextQuestion(ctx context.Context, resume, jobDescription string, history []Exchange) (string, error)
	Evaluate(ctx context.Context, question, answer, resume, jobDescription string) (AnswerEvaluation, error)
}

// Transcriber turns 16-bit mono PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// Synthesizer turns text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (speech.Clip, error)
}

// Coach scores delivery of a spoken answer and tracks pace across answers.
type Coach interface {
	Analyze(transcript string, pcm []byte, sampleRate int) CoachingFeedback
	AverageWPM() float64
	Reset()
}

// Decoder converts an uploaded audio container into 16-bit mono PCM.
type Decoder interface {
	Decode(ctx context.Context, data []byte, fileName string) (pcm []byte, sampleRate int, err error)
}

// coachSeeder is implemented by coaches that can be primed with past pace samples.
type coachSeeder interface {
	Seed(wpm []float64)
}
