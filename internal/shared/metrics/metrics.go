package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_started_total",
		Help: "Total interview sessions started",
	})
	sessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_completed_total",
		Help: "Total interview sessions ended with a summary",
	})
	questionsAsked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interview_questions_asked_total",
		Help: "Total questions generated",
	})
	answersProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_answers_processed_total",
		Help: "Answers processed by outcome",
	}, []string{"outcome"})
	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_stage_duration_seconds",
		Help:    "Latency of pipeline stages (transcode, stt, tts, llm)",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})
	httpRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	sessionLogDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_log_events_dropped_total",
		Help: "Session log events dropped because the write queue was full",
	})
	cleanedSessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_sessions_cleaned_total",
		Help: "Expired sessions removed by the janitor",
	}, []string{"backend"})
)

func init() {
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		sessionsStarted,
		sessionsCompleted,
		questionsAsked,
		answersProcessed,
		stageDuration,
		httpRequests,
		sessionLogDropped,
		cleanedSessions,
	)
}

// IncSessionsStarted increments the started counter.
func IncSessionsStarted() { sessionsStarted.Inc() }

// IncSessionsCompleted increments the completed counter.
func IncSessionsCompleted() { sessionsCompleted.Inc() }

// IncQuestionsAsked increments the question counter.
func IncQuestionsAsked() { questionsAsked.Inc() }

// IncAnswers records a processed answer; outcome is "ok" or "failed".
func IncAnswers(outcome string) { answersProcessed.WithLabelValues(outcome).Inc() }

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRequest records an HTTP request.
func ObserveRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncSessionLogDropped counts a dropped session log event.
func IncSessionLogDropped() { sessionLogDropped.Inc() }

// AddCleaned counts sessions removed by cleanup for a backend ("store" or "repo").
func AddCleaned(backend string, n int) {
	if n <= 0 {
		return
	}
	cleanedSessions.WithLabelValues(backend).Add(float64(n))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
