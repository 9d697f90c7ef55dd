package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	DataDir       string
	ResumesDir    string
	SessionLogDir string

	ObjectStoreType string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	S3Endpoint      string
	SSEKMSKeyID     string

	DatabaseURL string
	SessionDB   string
	SQLitePath  string

	RedisURL      string
	RedisRequired bool

	SessionTTL          time.Duration
	SessionRetention    time.Duration
	CleanupInterval     time.Duration
	SessionLogQueueSize int

	LLMProvider   string
	GeminiAPIKeys []string
	GeminiModel   string
	OpenAIAPIKey  string
	OpenAIModel   string
	MaxQuestions  int

	Speech SpeechConfig
}

// SpeechConfig configures the external speech tooling.
type SpeechConfig struct {
	FFmpegPath        string `yaml:"ffmpeg_path"`
	WhisperPath       string `yaml:"whisper_path"`
	WhisperModel      string `yaml:"whisper_model"`
	WhisperLanguage   string `yaml:"whisper_language"`
	WhisperThreads    int    `yaml:"whisper_threads"`
	EspeakPath        string `yaml:"espeak_path"`
	EspeakVoice       string `yaml:"espeak_voice"`
	EspeakSpeed       int    `yaml:"espeak_speed"`
	TTSProvider       string `yaml:"tts_provider"`
	ElevenLabsAPIKey  string `yaml:"-"`
	ElevenLabsVoiceID string `yaml:"elevenlabs_voice_id"`
	ElevenLabsModel   string `yaml:"elevenlabs_model"`
	Concurrency       int    `yaml:"concurrency"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	dataDir := getEnv("DATA_DIR", "./data")

	speech := DefaultSpeech()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadSpeechFile(path, &speech); err != nil {
			log.Printf("config: ignoring %s: %v", path, err)
		}
	}
	speech = speechFromEnv(speech)

	geminiKeys := splitAndTrim(os.Getenv("GEMINI_API_KEYS"))
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		geminiKeys = append([]string{key}, geminiKeys...)
	}

	cfg := Config{
		Port:                getEnv("PORT", "8000"),
		CORSAllowOrigin:     splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:                 env,
		DataDir:             dataDir,
		ResumesDir:          getEnv("RESUMES_DIR", filepath.Join(dataDir, "resumes")),
		SessionLogDir:       getEnv("SESSION_LOG_DIR", filepath.Join(dataDir, "session_logs")),
		ObjectStoreType:     normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		AWSRegion:           getEnv("AWS_REGION", ""),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", "resumes/"),
		S3Endpoint:          getEnv("S3_ENDPOINT", ""),
		SSEKMSKeyID:         getEnv("SSE_KMS_KEY_ID", ""),
		DatabaseURL:         dbURL,
		SessionDB:           normalizeSessionDB(getEnv("SESSION_DB", ""), dbURL),
		SQLitePath:          getEnv("SQLITE_PATH", filepath.Join(dataDir, "sessions.db")),
		RedisURL:            getEnv("REDIS_URL", ""),
		RedisRequired:       getEnvBool("REDIS_REQUIRED", false),
		SessionTTL:          getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionRetention:    getEnvDuration("SESSION_RETENTION", 24*time.Hour),
		CleanupInterval:     getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute),
		SessionLogQueueSize: getEnvInt("SESSION_LOG_QUEUE_SIZE", 1000),
		LLMProvider:         normalizeLLMProvider(getEnv("LLM_PROVIDER", ""), len(geminiKeys) > 0),
		GeminiAPIKeys:       geminiKeys,
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MaxQuestions:        getEnvInt("MAX_QUESTIONS", 10),
		Speech:              speech,
	}

	if env == "production" && cfg.SessionDB == "memory" {
		log.Printf("SESSION_DB=memory is not durable; sessions will be lost on restart")
	}
	return cfg
}

// DefaultSpeech returns the speech settings used inside the runtime image.
func DefaultSpeech() SpeechConfig {
	return SpeechConfig{
		FFmpegPath:        "ffmpeg",
		WhisperPath:       "whisper-cli",
		WhisperModel:      "/app/models/ggml-base.en.bin",
		WhisperLanguage:   "en",
		WhisperThreads:    4,
		EspeakPath:        "espeak-ng",
		EspeakVoice:       "en-us",
		EspeakSpeed:       160,
		TTSProvider:       "espeak",
		ElevenLabsVoiceID: "JBFqnCBsd6RMkjVDRZzb",
		ElevenLabsModel:   "eleven_multilingual_v2",
		Concurrency:       2,
	}
}

func speechFromEnv(s SpeechConfig) SpeechConfig {
	s.FFmpegPath = getEnv("FFMPEG_PATH", s.FFmpegPath)
	s.WhisperPath = getEnv("WHISPER_PATH", s.WhisperPath)
	s.WhisperModel = getEnv("WHISPER_MODEL", s.WhisperModel)
	s.WhisperLanguage = getEnv("WHISPER_LANGUAGE", s.WhisperLanguage)
	s.WhisperThreads = getEnvInt("WHISPER_THREADS", s.WhisperThreads)
	s.EspeakPath = getEnv("ESPEAK_PATH", s.EspeakPath)
	s.EspeakVoice = getEnv("ESPEAK_VOICE", s.EspeakVoice)
	s.EspeakSpeed = getEnvInt("ESPEAK_SPEED", s.EspeakSpeed)
	s.ElevenLabsAPIKey = getEnv("ELEVENLABS_API_KEY", s.ElevenLabsAPIKey)
	s.ElevenLabsVoiceID = getEnv("ELEVENLABS_VOICE_ID", s.ElevenLabsVoiceID)
	s.ElevenLabsModel = getEnv("ELEVENLABS_MODEL", s.ElevenLabsModel)
	s.Concurrency = getEnvInt("SPEECH_CONCURRENCY", s.Concurrency)
	s.TTSProvider = normalizeTTSProvider(getEnv("TTS_PROVIDER", s.TTSProvider), s.ElevenLabsAPIKey != "")
	if s.Concurrency <= 0 {
		s.Concurrency = 1
	}
	return s
}

// IsDevLike reports whether env allows in-memory fallbacks.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: %s invalid int %q, using %d", key, raw, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("config: %s invalid duration %q, using %s", key, raw, def)
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeSessionDB(raw, databaseURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory":
		return "memory"
	case "sqlite":
		return "sqlite"
	case "postgres", "pg":
		return "postgres"
	}
	if strings.TrimSpace(databaseURL) != "" {
		return "postgres"
	}
	return "sqlite"
}

func normalizeLLMProvider(raw string, haveGeminiKey bool) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini":
		return "gemini"
	case "openai":
		return "openai"
	case "offline":
		return "offline"
	}
	if haveGeminiKey {
		return "gemini"
	}
	return "offline"
}

func normalizeTTSProvider(raw string, haveElevenLabsKey bool) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "elevenlabs":
		if haveElevenLabsKey {
			return "elevenlabs"
		}
		log.Printf("config: TTS_PROVIDER=elevenlabs without ELEVENLABS_API_KEY, using espeak")
		return "espeak"
	default:
		return "espeak"
	}
}
