package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"interview-backend/internal/resumes"
	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/speech"
)

// StartInput opens an interview from pasted resume text or an uploaded resume.
type StartInput struct {
	ResumeText     string
	ResumeID       string
	JobDescription string
}

// AnswerInput carries one recorded answer. RawPCM marks 16-bit mono PCM at SampleRate;
// otherwise Audio is a container (wav, webm, mp3...) decoded by the Decoder.
type AnswerInput struct {
	Audio      []byte
	FileName   string
	RawPCM     bool
	SampleRate int
}

// Service runs interview operations against persisted sessions. Each call restores the
// session into a fresh Orchestrator under a per-session lock and saves it afterwards.
type Service struct {
	Interviewer  Interviewer
	Transcriber  Transcriber
	Synthesizer  Synthesizer
	NewCoach     func() Coach
	Decoder      Decoder
	Store        HotStore
	Repo         Repo
	Resumes      ResumeSource
	Events       *Broker
	Log          EventLog
	MaxQuestions int

	locks keyedMutex
}

// Start opens a session and leaves it in INTRO.
func (s *Service) Start(ctx context.Context, in StartInput) (*Session, error) {
	resumeText := strings.TrimSpace(in.ResumeText)
	if resumeText == "" && in.ResumeID != "" {
		if s.Resumes == nil {
			return nil, fmt.Errorf("%w: resume uploads are not enabled", ErrInvalidInput)
		}
		text, err := s.Resumes.Text(ctx, in.ResumeID)
		if err != nil {
			if errors.Is(err, resumes.ErrNotFound) {
				return nil, fmt.Errorf("%w: resume %s not found", ErrInvalidInput, in.ResumeID)
			}
			return nil, err
		}
		resumeText = strings.TrimSpace(text)
	}

	o := s.orchestrator()
	id, err := o.Start(resumeText, strings.TrimSpace(in.JobDescription))
	if err != nil {
		return nil, err
	}
	sess := o.Session()
	sess.ResumeID = in.ResumeID

	unlock := s.locks.Lock(id)
	defer unlock()
	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	metrics.IncSessionsStarted()
	s.record(id, "session_started", map[string]any{
		"resume_id":       in.ResumeID,
		"resume_chars":    len(resumeText),
		"job_description": sess.JobDescription != "",
	})
	telemetry.Info("session.started", map[string]any{"session_id": id})
	return sess, nil
}

// Get returns the stored session.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.load(ctx, id)
}

// List returns every known session id: durable ones newest first, then any that only live
// in the hot store.
func (s *Service) List(ctx context.Context) ([]string, error) {
	ids, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	active, err := s.Store.ListActive(ctx)
	if err != nil {
		telemetry.Warn("session.list_active_failed", map[string]any{"error": err.Error()})
		return ids, nil
	}
	var extra []string
	for _, id := range active {
		if _, ok := seen[id]; !ok {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...), nil
}

// NextQuestion generates and records the next question and reports its 1-based number.
func (s *Service) NextQuestion(ctx context.Context, id string) (string, int, error) {
	var (
		question string
		number   int
	)
	err := s.withSession(ctx, id, true, func(o *Orchestrator) error {
		var err error
		question, err = o.NextQuestion(ctx)
		number = o.Session().TotalQuestionsAsked
		return err
	})
	if err != nil {
		return "", 0, err
	}
	metrics.IncQuestionsAsked()
	s.record(id, "question_asked", map[string]any{"question": question, "number": number})
	return question, number, nil
}

// QuestionAudio speaks the current question.
func (s *Service) QuestionAudio(ctx context.Context, id string) (speech.Clip, error) {
	var clip speech.Clip
	err := s.withSession(ctx, id, false, func(o *Orchestrator) error {
		q := o.Session().CurrentQuestion
		if q == "" {
			return &InvalidStateError{Op: "speak question", Current: o.State(), Allowed: []State{StateListening, StateEvaluating}}
		}
		var err error
		clip, err = o.SpeakQuestion(ctx, q)
		return err
	})
	return clip, err
}

// ProcessAnswer decodes, transcribes, grades and coaches an answer.
func (s *Service) ProcessAnswer(ctx context.Context, id string, in AnswerInput) (AnswerResult, error) {
	if len(in.Audio) == 0 {
		return AnswerResult{}, fmt.Errorf("%w: audio is empty", ErrInvalidInput)
	}

	pcm, sampleRate := in.Audio, in.SampleRate
	if in.RawPCM {
		if sampleRate <= 0 {
			sampleRate = speech.TargetSampleRate
		}
	} else {
		if s.Decoder == nil {
			return AnswerResult{}, fmt.Errorf("%w: audio decoding is not available, send raw pcm", ErrInvalidInput)
		}
		var err error
		pcm, sampleRate, err = s.Decoder.Decode(ctx, in.Audio, in.FileName)
		if err != nil {
			metrics.IncAnswers("failed")
			return AnswerResult{}, fmt.Errorf("%w: decode audio: %w", ErrInvalidInput, err)
		}
	}

	var result AnswerResult
	err := s.withSession(ctx, id, true, func(o *Orchestrator) error {
		var err error
		result, err = o.ProcessAnswer(ctx, pcm, sampleRate)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return AnswerResult{}, err
		}
		if !errors.Is(err, ErrSession) {
			metrics.IncAnswers("failed")
		}
		s.record(id, "answer_failed", map[string]any{"error": err.Error()})
		return AnswerResult{}, err
	}

	metrics.IncAnswers("ok")
	s.record(id, "answer_processed", map[string]any{
		"transcript":  result.Transcript,
		"overall":     result.Evaluation.Overall(),
		"wpm":         result.Coaching.WordsPerMinute,
		"fillers":     result.Coaching.FillerCount,
		"alert_level": string(result.Coaching.AlertLevel),
	})
	s.Events.Publish(Event{Type: EventAnswer, SessionID: id, Data: result})
	return result, nil
}

// End completes the interview and returns its summary. Ending twice returns the same summary.
func (s *Service) End(ctx context.Context, id string) (Summary, error) {
	var (
		summary     Summary
		wasComplete bool
	)
	err := s.withSession(ctx, id, true, func(o *Orchestrator) error {
		wasComplete = o.State() == StateComplete
		var err error
		summary, err = o.End()
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	if !wasComplete {
		metrics.IncSessionsCompleted()
		s.record(id, "session_ended", map[string]any{
			"total_questions": summary.TotalQuestions,
			"average_score":   summary.AverageScore,
		})
		if s.Log != nil {
			if err := s.Log.WriteSummary(id, summary); err != nil {
				telemetry.Warn("session.summary_write_failed", map[string]any{"session_id": id, "error": err.Error()})
			}
		}
		s.Events.Publish(Event{Type: EventEnded, SessionID: id, Data: summary})
	}
	return summary, nil
}

// Stats reports running numbers for a session.
func (s *Service) Stats(ctx context.Context, id string) (map[string]any, error) {
	var stats map[string]any
	err := s.withSession(ctx, id, false, func(o *Orchestrator) error {
		stats = o.Stats()
		return nil
	})
	return stats, err
}

// Delete removes a session from both stores. The durable copy goes first so a failed
// delete leaves the session intact in both.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	inRepo, err := s.Repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	inStore, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !inStore && !inRepo {
		return ErrNotFound
	}
	s.record(id, "session_deleted", nil)
	s.Events.Publish(Event{Type: EventDeleted, SessionID: id})
	s.Events.CloseSession(id)
	telemetry.Info("session.deleted", map[string]any{"session_id": id})
	return nil
}

// Speak synthesizes arbitrary text outside any session.
func (s *Service) Speak(ctx context.Context, text string) (speech.Clip, error) {
	return s.orchestrator().SpeakQuestion(ctx, text)
}

func (s *Service) withSession(ctx context.Context, id string, save bool, fn func(*Orchestrator) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	o := s.orchestrator()
	o.Restore(sess)
	s.attach(o, id)

	opErr := fn(o)
	if save {
		if err := s.persist(ctx, o.Session()); err != nil {
			if opErr != nil {
				return opErr
			}
			return err
		}
	}
	return opErr
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	raw, ok, err := s.Store.Get(ctx, id)
	if err != nil {
		telemetry.Warn("session.store_get_failed", map[string]any{"session_id": id, "error": err.Error()})
	}
	if ok {
		var sess Session
		if err := json.Unmarshal(raw, &sess); err == nil {
			return &sess, nil
		}
		telemetry.Warn("session.store_decode_failed", map[string]any{"session_id": id})
	}

	sess, err := s.Repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(sess); err == nil {
		if err := s.Store.Set(ctx, id, raw); err != nil {
			telemetry.Warn("session.store_warm_failed", map[string]any{"session_id": id, "error": err.Error()})
		}
	}
	return sess, nil
}

// persist writes to the hot store, which must succeed, then to the repo, which may lag.
func (s *Service) persist(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.Store.Set(ctx, sess.SessionID, raw); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	start := time.Now()
	if err := s.Repo.Save(ctx, sess); err != nil {
		telemetry.Error("session.repo_save_failed", map[string]any{
			"session_id": sess.SessionID,
			"error":      err.Error(),
		})
		return nil
	}
	telemetry.Debug("session.saved", map[string]any{
		"session_id":  sess.SessionID,
		"exchanges":   len(sess.Exchanges),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

func (s *Service) orchestrator() *Orchestrator {
	var coach Coach
	if s.NewCoach != nil {
		coach = s.NewCoach()
	}
	return NewOrchestrator(Components{
		Interviewer: s.Interviewer,
		Transcriber: s.Transcriber,
		Synthesizer: s.Synthesizer,
		Coach:       coach,
	}, s.MaxQuestions)
}

func (s *Service) attach(o *Orchestrator, id string) {
	o.OnStateChange(func(st State) {
		s.Events.Publish(Event{Type: EventState, SessionID: id, Data: map[string]any{"state": st}})
	})
	o.OnQuestion(func(q string) {
		s.Events.Publish(Event{Type: EventQuestion, SessionID: id, Data: map[string]any{"question": q}})
	})
	o.OnFeedback(func(f CoachingFeedback) {
		s.Events.Publish(Event{Type: EventFeedback, SessionID: id, Data: f})
	})
}

func (s *Service) record(id, event string, fields map[string]any) {
	if s.Log == nil {
		return
	}
	s.Log.Record(id, event, fields)
}
