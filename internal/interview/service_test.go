package interview

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"interview-backend/internal/resumes"
	"interview-backend/internal/sessionlog"
	"interview-backend/internal/sessionstore"
)

type fakeDecoder struct {
	calls int
	err   error
}

func (f *fakeDecoder) Decode(ctx context.Context, data []byte, fileName string) ([]byte, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	return make([]byte, 32000), 16000, nil
}

type fakeResumes map[string]string

func (f fakeResumes) Text(ctx context.Context, id string) (string, error) {
	text, ok := f[id]
	if !ok {
		return "", resumes.ErrNotFound
	}
	return text, nil
}

type recordedEvent struct {
	session string
	event   string
}

type fakeLog struct {
	mu        sync.Mutex
	events    []recordedEvent
	summaries map[string]any
}

func (f *fakeLog) Record(sessionID, event string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{sessionID, event})
}

func (f *fakeLog) WriteSummary(sessionID string, summary any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaries == nil {
		f.summaries = map[string]any{}
	}
	f.summaries[sessionID] = summary
	return nil
}

func (f *fakeLog) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.event
	}
	return out
}

type serviceFixture struct {
	*fixture
	svc     *Service
	store   *sessionstore.Store
	repo    *MemoryRepo
	decoder *fakeDecoder
	log     *fakeLog
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := newFixture()
	sf := &serviceFixture{
		fixture: f,
		store:   sessionstore.NewMemory(0),
		repo:    NewMemoryRepo(),
		decoder: &fakeDecoder{},
		log:     &fakeLog{},
	}
	sf.svc = &Service{
		Interviewer:  f.interviewer,
		Transcriber:  f.stt,
		Synthesizer:  f.tts,
		NewCoach:     func() Coach { return f.coach },
		Decoder:      sf.decoder,
		Store:        sf.store,
		Repo:         sf.repo,
		Resumes:      fakeResumes{"r-1": sampleResume},
		Events:       NewBroker(32),
		Log:          sf.log,
		MaxQuestions: 3,
	}
	return sf
}

func (sf *serviceFixture) start(t *testing.T) string {
	t.Helper()
	sess, err := sf.svc.Start(context.Background(), StartInput{ResumeText: sampleResume, JobDescription: sampleJobDescription})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess.SessionID
}

func TestServiceStartPersistsToStoreAndRepo(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	if _, ok, _ := sf.store.Get(ctx, id); !ok {
		t.Fatalf("expected session in hot store")
	}
	stored, err := sf.repo.Load(ctx, id)
	if err != nil {
		t.Fatalf("expected session in repo: %v", err)
	}
	if stored.State != StateIntro {
		t.Fatalf("expected INTRO, got %s", stored.State)
	}
	if names := sf.log.names(); len(names) != 1 || names[0] != "session_started" {
		t.Fatalf("unexpected log events: %v", names)
	}
}

func TestServiceStartFromUploadedResume(t *testing.T) {
	sf := newServiceFixture(t)
	sess, err := sf.svc.Start(context.Background(), StartInput{ResumeID: "r-1"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.ResumeID != "r-1" || sess.ResumeText == "" {
		t.Fatalf("expected resume text loaded, got %+v", sess)
	}

	_, err = sf.svc.Start(context.Background(), StartInput{ResumeID: "missing"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown resume, got %v", err)
	}
}

func TestServiceFullInterview(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	q, n, err := sf.svc.NextQuestion(ctx, id)
	if err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	if q == "" || n != 1 {
		t.Fatalf("unexpected question %q #%d", q, n)
	}

	result, err := sf.svc.ProcessAnswer(ctx, id, AnswerInput{Audio: []byte("webm"), FileName: "answer.webm"})
	if err != nil {
		t.Fatalf("ProcessAnswer: %v", err)
	}
	if sf.decoder.calls != 1 {
		t.Fatalf("expected container audio decoded once, got %d", sf.decoder.calls)
	}
	if result.Transcript == "" || result.Evaluation.TechnicalAccuracy != 8 {
		t.Fatalf("unexpected result: %+v", result)
	}

	if _, n, err = sf.svc.NextQuestion(ctx, id); err != nil || n != 2 {
		t.Fatalf("second NextQuestion: n=%d err=%v", n, err)
	}
	if sf.interviewer.questionCalls != 1 || len(sf.interviewer.lastHistory) != 1 {
		t.Fatalf("expected follow-up built from restored history")
	}

	if _, err := sf.svc.ProcessAnswer(ctx, id, AnswerInput{Audio: make([]byte, 3200), RawPCM: true}); err != nil {
		t.Fatalf("raw ProcessAnswer: %v", err)
	}
	if sf.decoder.calls != 1 {
		t.Fatalf("raw pcm must skip decoding")
	}

	summary, err := sf.svc.End(ctx, id)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if summary.TotalQuestions != 2 || len(summary.Exchanges) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, ok := sf.log.summaries[id]; !ok {
		t.Fatalf("expected summary written")
	}

	again, err := sf.svc.End(ctx, id)
	if err != nil {
		t.Fatalf("second End: %v", err)
	}
	if again.TotalQuestions != summary.TotalQuestions {
		t.Fatalf("expected idempotent end")
	}

	stored, err := sf.repo.Load(ctx, id)
	if err != nil {
		t.Fatalf("repo Load: %v", err)
	}
	if stored.State != StateComplete || len(stored.Exchanges) != 2 {
		t.Fatalf("repo not updated: state=%s exchanges=%d", stored.State, len(stored.Exchanges))
	}

	ended := 0
	for _, name := range sf.log.names() {
		if name == "session_ended" {
			ended++
		}
	}
	if ended != 1 {
		t.Fatalf("expected one session_ended event, got %d", ended)
	}
}

func TestServiceLoadsFromRepoWhenStoreMisses(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	if _, err := sf.store.Delete(ctx, id); err != nil {
		t.Fatalf("store Delete: %v", err)
	}
	if _, _, err := sf.svc.NextQuestion(ctx, id); err != nil {
		t.Fatalf("NextQuestion after store miss: %v", err)
	}
	if _, ok, _ := sf.store.Get(ctx, id); !ok {
		t.Fatalf("expected store warmed from repo")
	}
}

func TestServiceUnknownSession(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()

	if _, _, err := sf.svc.NextQuestion(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := sf.svc.Stats(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := sf.svc.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceAnswerForUnknownSessionLeavesNoLog(t *testing.T) {
	sf := newServiceFixture(t)
	dir := t.TempDir()
	w, err := sessionlog.New(dir, 16)
	if err != nil {
		t.Fatalf("sessionlog.New: %v", err)
	}
	sf.svc.Log = w

	for _, id := range []string{"ghost-0", "ghost-1"} {
		_, err := sf.svc.ProcessAnswer(context.Background(), id, AnswerInput{Audio: make([]byte, 320), RawPCM: true})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for %s, got %v", id, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no log files, got %d", len(entries))
	}
}

func TestServiceAnswerFailureIsLogged(t *testing.T) {
	sf := newServiceFixture(t)
	id := sf.start(t)

	if _, err := sf.svc.ProcessAnswer(context.Background(), id, AnswerInput{Audio: make([]byte, 320), RawPCM: true}); err == nil {
		t.Fatalf("expected error answering before a question")
	}
	names := sf.log.names()
	if len(names) != 2 || names[1] != "answer_failed" {
		t.Fatalf("unexpected log events: %v", names)
	}
}

func TestServiceAnswerBeforeQuestionIsInvalidState(t *testing.T) {
	sf := newServiceFixture(t)
	id := sf.start(t)

	_, err := sf.svc.ProcessAnswer(context.Background(), id, AnswerInput{Audio: []byte("pcm"), RawPCM: true})
	var stateErr *InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if stateErr.Current != StateIntro {
		t.Fatalf("unexpected current state %s", stateErr.Current)
	}
}

func TestServiceDecodeFailureIsInvalidInput(t *testing.T) {
	sf := newServiceFixture(t)
	id := sf.start(t)
	sf.decoder.err = errors.New("ffmpeg: invalid data")

	_, err := sf.svc.ProcessAnswer(context.Background(), id, AnswerInput{Audio: []byte("junk"), FileName: "a.ogg"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestServiceQuestionAudio(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	if _, err := sf.svc.QuestionAudio(ctx, id); !errors.Is(err, ErrSession) {
		t.Fatalf("expected session error before first question, got %v", err)
	}
	if _, _, err := sf.svc.NextQuestion(ctx, id); err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}
	clip, err := sf.svc.QuestionAudio(ctx, id)
	if err != nil {
		t.Fatalf("QuestionAudio: %v", err)
	}
	if len(clip.Data) == 0 {
		t.Fatalf("expected audio")
	}
}

func TestServiceMaxQuestions(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	for i := 0; i < 3; i++ {
		if _, _, err := sf.svc.NextQuestion(ctx, id); err != nil {
			t.Fatalf("NextQuestion %d: %v", i, err)
		}
		if _, err := sf.svc.ProcessAnswer(ctx, id, AnswerInput{Audio: make([]byte, 320), RawPCM: true}); err != nil {
			t.Fatalf("ProcessAnswer %d: %v", i, err)
		}
	}
	if _, _, err := sf.svc.NextQuestion(ctx, id); !errors.Is(err, ErrInterviewFinished) {
		t.Fatalf("expected ErrInterviewFinished, got %v", err)
	}
}

func TestServiceDeleteRemovesEverywhere(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	events, cancel := sf.svc.Events.Subscribe(id)
	defer cancel()

	if err := sf.svc.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := sf.svc.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	var types []string
	for e := range events {
		types = append(types, e.Type)
	}
	if len(types) != 1 || types[0] != EventDeleted {
		t.Fatalf("expected deleted event then close, got %v", types)
	}
}

type failingDeleteRepo struct {
	*MemoryRepo
}

func (r failingDeleteRepo) Delete(ctx context.Context, id string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestServiceDeleteKeepsSessionWhenRepoFails(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)
	sf.svc.Repo = failingDeleteRepo{sf.repo}

	if err := sf.svc.Delete(ctx, id); err == nil {
		t.Fatalf("expected repo delete error")
	}
	if _, ok, _ := sf.store.Get(ctx, id); !ok {
		t.Fatalf("expected session still in hot store")
	}
	if _, err := sf.svc.Get(ctx, id); err != nil {
		t.Fatalf("expected session still loadable, got %v", err)
	}
}

func TestServiceListMergesStoreOnlySessions(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	first := sf.start(t)

	if err := sf.store.Set(ctx, "hot-only", []byte(`{}`)); err != nil {
		t.Fatalf("store Set: %v", err)
	}
	ids, err := sf.svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 || ids[0] != first || ids[1] != "hot-only" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestServicePublishesLiveEvents(t *testing.T) {
	sf := newServiceFixture(t)
	ctx := context.Background()
	id := sf.start(t)

	events, cancel := sf.svc.Events.Subscribe(id)
	defer cancel()

	if _, _, err := sf.svc.NextQuestion(ctx, id); err != nil {
		t.Fatalf("NextQuestion: %v", err)
	}

	var types []string
	for len(events) > 0 {
		types = append(types, (<-events).Type)
	}
	want := []string{EventState, EventState, EventQuestion}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}
