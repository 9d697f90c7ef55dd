package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/coach"
	"interview-backend/internal/interview"
	"interview-backend/internal/janitor"
	"interview-backend/internal/llm/gemini"
	"interview-backend/internal/llm/offline"
	"interview-backend/internal/llm/openai"
	"interview-backend/internal/resumes"
	"interview-backend/internal/services/health"
	"interview-backend/internal/sessionlog"
	"interview-backend/internal/sessionstore"
	"interview-backend/internal/shared/config"
	"interview-backend/internal/shared/executor"
	"interview-backend/internal/shared/server"
	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/storage/db"
	"interview-backend/internal/shared/storage/object"
	localstore "interview-backend/internal/shared/storage/object/local"
	s3store "interview-backend/internal/shared/storage/object/s3"
	"interview-backend/internal/speech"
)

// App holds shared dependencies and the wired router.
type App struct {
	Config   config.Config
	Router   *gin.Engine
	DB       *sql.DB
	Dialect  string
	Objects  object.ObjectStore
	Sessions *sessionstore.Store
	Events   *interview.Broker

	SessionRepo interview.Repo
	ResumeRepo  resumes.Repo
	SessionLog  *sessionlog.Writer

	InterviewService *interview.Service
	ResumeService    *resumes.Service
	InterviewHandler *interview.Handler
	ResumeHandler    *resumes.Handler
	Health           *health.Service
	Janitor          *janitor.Janitor
}

// Build prepares every dependency and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	for _, dir := range []string{cfg.ResumesDir, cfg.SessionLogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	app := &App{Config: cfg}
	var err error
	app.DB, app.Dialect, err = buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := app.buildStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.buildServices(); err != nil {
		app.Close()
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      app.Config,
		Interview:   app.InterviewHandler,
		Resumes:     app.ResumeHandler,
		Health:      app.Health,
		RateLimiter: middleware.NewRateLimiter(time.Now),
	})
	return app, nil
}

// Close flushes the session log and releases connections.
func (a *App) Close() error {
	var errs []error
	if a.SessionLog != nil {
		errs = append(errs, a.SessionLog.Close())
	}
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, string, error) {
	var (
		sqlDB   *sql.DB
		dialect string
		err     error
	)
	switch cfg.SessionDB {
	case "postgres":
		dialect = db.DialectPostgres
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	case "sqlite":
		dialect = db.DialectSQLite
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath, db.OptionsFromEnv(db.DefaultSQLiteOptions()))
	default:
		log.Printf("bootstrap: SESSION_DB=%q; using in-memory repositories", cfg.SessionDB)
		return nil, "", nil
	}
	if err == nil {
		if err = db.RunMigrations(ctx, sqlDB, dialect); err != nil {
			sqlDB.Close()
			err = fmt.Errorf("migrate %s: %w", dialect, err)
		}
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: %s unavailable; using in-memory repositories: %v", dialect, err)
			return nil, "", nil
		}
		return nil, "", err
	}
	return sqlDB, dialect, nil
}

func (a *App) buildStorage(ctx context.Context) error {
	cfg := a.Config

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	a.Objects = objects

	a.Sessions, err = sessionstore.New(ctx, cfg.RedisURL, cfg.SessionTTL, cfg.RedisRequired)
	if err != nil {
		return err
	}

	a.SessionLog, err = sessionlog.New(cfg.SessionLogDir, cfg.SessionLogQueueSize)
	if err != nil {
		return err
	}

	if a.DB != nil {
		a.SessionRepo = interview.NewSQLRepo(a.DB, a.Dialect)
		a.ResumeRepo = &resumes.SQLRepo{DB: a.DB, Dialect: a.Dialect}
	} else {
		a.SessionRepo = interview.NewMemoryRepo()
		a.ResumeRepo = resumes.NewMemoryRepo()
	}
	return nil
}

func buildObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID, s3store.WithEndpoint(cfg.S3Endpoint))
	default:
		return localstore.New(cfg.ResumesDir), nil
	}
}

func (a *App) buildServices() error {
	cfg := a.Config

	interviewer, err := buildInterviewer(cfg)
	if err != nil {
		return err
	}
	synth, err := buildSynthesizer(cfg.Speech, speechExecutor(cfg.Speech))
	if err != nil {
		return err
	}
	sttExec := speechExecutor(cfg.Speech)
	transcoder := speech.NewTranscoder(sttExec, cfg.Speech.FFmpegPath)
	whisper := speech.NewWhisper(sttExec, speech.WhisperConfig{
		BinaryPath: cfg.Speech.WhisperPath,
		ModelPath:  cfg.Speech.WhisperModel,
		Language:   cfg.Speech.WhisperLanguage,
		Threads:    cfg.Speech.WhisperThreads,
	}, transcoder)

	a.Events = interview.NewBroker(0)
	a.ResumeService = &resumes.Service{Store: a.Objects, Repo: a.ResumeRepo}
	a.InterviewService = &interview.Service{
		Interviewer:  interviewer,
		Transcriber:  whisper,
		Synthesizer:  synth,
		NewCoach:     func() interview.Coach { return coach.New(coach.DefaultThresholds()) },
		Decoder:      transcoder,
		Store:        a.Sessions,
		Repo:         a.SessionRepo,
		Resumes:      a.ResumeService,
		Events:       a.Events,
		Log:          a.SessionLog,
		MaxQuestions: cfg.MaxQuestions,
	}

	a.InterviewHandler = interview.NewHandler(a.InterviewService, cfg.CORSAllowOrigin)
	a.ResumeHandler = resumes.NewHandler(a.ResumeService)
	a.Health = health.NewService(a.Sessions, a.SessionRepo, map[string]any{
		"env":          cfg.Env,
		"llm_provider": cfg.LLMProvider,
		"tts_provider": cfg.Speech.TTSProvider,
	})
	a.Janitor = &janitor.Janitor{
		Store:     a.Sessions,
		Repo:      a.SessionRepo,
		Interval:  cfg.CleanupInterval,
		Retention: cfg.SessionRetention,
	}
	return nil
}

// speechExecutor bounds how many ffmpeg, whisper and espeak processes run at once.
// Each call returns an independent pool; STT and TTS do not compete for slots.
func speechExecutor(cfg config.SpeechConfig) executor.Executor {
	n := cfg.Concurrency
	if n <= 0 {
		n = 2
	}
	return executor.Limited(executor.New(), n)
}

func buildInterviewer(cfg config.Config) (interview.Interviewer, error) {
	var (
		client interview.Interviewer
		err    error
	)
	switch cfg.LLMProvider {
	case "gemini":
		client, err = gemini.NewClient(cfg.GeminiAPIKeys, cfg.GeminiModel)
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, os.Getenv("OPENAI_BASE_URL"))
	default:
		return offline.New(), nil
	}
	if err != nil {
		if cfg.IsDevLike() {
			log.Printf("bootstrap: %s unavailable; using offline interviewer: %v", cfg.LLMProvider, err)
			return offline.New(), nil
		}
		return nil, err
	}
	return client, nil
}

func buildSynthesizer(cfg config.SpeechConfig, exec executor.Executor) (interview.Synthesizer, error) {
	espeak := speech.NewEspeak(exec, cfg.EspeakPath, cfg.EspeakVoice, cfg.EspeakSpeed)
	if cfg.TTSProvider != "elevenlabs" {
		return espeak, nil
	}
	eleven, err := speech.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModel, "")
	if err != nil {
		return nil, err
	}
	return speech.Fallback{Primary: eleven, Secondary: espeak}, nil
}
