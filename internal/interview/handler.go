package interview

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/server/middleware"
	"interview-backend/internal/shared/server/respond"
	"interview-backend/internal/speech"
)

const (
	maxAnswerSize = 25 << 20 // 25MB
	maxTTSChars   = 5000
	wsWriteWait   = 5 * time.Second
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	AllowedOrigins []string
}

// NewHandler constructs a Handler. allowedOrigins limits websocket upgrades the same way CORS
// limits requests.
func NewHandler(svc *Service, allowedOrigins []string) *Handler {
	return &Handler{Svc: svc, AllowedOrigins: allowedOrigins}
}

// RegisterRoutes attaches interview routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.start)
	rg.GET("/sessions", h.list)
	rg.GET("/sessions/:id", h.get)
	rg.DELETE("/sessions/:id", h.delete)
	rg.POST("/sessions/:id/question", h.nextQuestion)
	rg.GET("/sessions/:id/question/audio", h.questionAudio)
	rg.POST("/sessions/:id/answer", h.answer)
	rg.POST("/sessions/:id/end", h.end)
	rg.GET("/sessions/:id/stats", h.stats)
	rg.GET("/sessions/:id/events", h.events)
	rg.POST("/tts", h.tts)
}

func (h *Handler) start(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.ResumeText = strings.TrimSpace(req.ResumeText)
	req.ResumeID = strings.TrimSpace(req.ResumeID)
	if req.ResumeText == "" && req.ResumeID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume_text or resume_id is required", nil)
		return
	}
	if req.ResumeID != "" {
		c.Set(middleware.ResumeIDKey, req.ResumeID)
	}

	sess, err := h.Svc.Start(c.Request.Context(), StartInput{
		ResumeText:     req.ResumeText,
		ResumeID:       req.ResumeID,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.SessionIDKey, sess.SessionID)
	c.Set(middleware.StateTransitionKey, string(StateIdle)+"->"+string(sess.State))

	respond.JSON(c, http.StatusCreated, startSessionResponse{
		SessionID: sess.SessionID,
		State:     sess.State,
		ResumeID:  sess.ResumeID,
		CreatedAt: sess.CreatedAt,
	})
}

func (h *Handler) list(c *gin.Context) {
	ids, err := h.Svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	respond.JSON(c, http.StatusOK, listSessionsResponse{Sessions: ids, Count: len(ids)})
}

func (h *Handler) get(c *gin.Context) {
	id := h.sessionID(c)
	sess, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, sess)
}

func (h *Handler) delete(c *gin.Context) {
	id := h.sessionID(c)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"session_id": id, "deleted": true})
}

func (h *Handler) nextQuestion(c *gin.Context) {
	id := h.sessionID(c)
	question, number, err := h.Svc.NextQuestion(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.StateTransitionKey, "->"+string(StateListening))
	respond.JSON(c, http.StatusOK, questionResponse{
		SessionID:      id,
		Question:       question,
		QuestionNumber: number,
		AudioURL:       "/api/sessions/" + id + "/question/audio",
	})
}

func (h *Handler) questionAudio(c *gin.Context) {
	id := h.sessionID(c)
	clip, err := h.Svc.QuestionAudio(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Audio(c, clip.ContentType, clip.Data)
}

func (h *Handler) answer(c *gin.Context) {
	id := h.sessionID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAnswerSize)

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "audio is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read audio", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read audio", nil)
		return
	}

	in := AnswerInput{
		Audio:    data,
		FileName: fileHeader.Filename,
		RawPCM:   strings.EqualFold(c.PostForm("format"), "pcm"),
	}
	if raw := strings.TrimSpace(c.PostForm("sample_rate")); raw != "" {
		sr, err := strconv.Atoi(raw)
		if err != nil || sr <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "sample_rate must be a positive integer", nil)
			return
		}
		in.SampleRate = sr
	}

	result, err := h.Svc.ProcessAnswer(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.StateTransitionKey, string(StateListening)+"->"+string(StateEvaluating))
	respond.JSON(c, http.StatusOK, toAnswerResponse(id, result))
}

func (h *Handler) end(c *gin.Context) {
	id := h.sessionID(c)
	summary, err := h.Svc.End(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.StateTransitionKey, "->"+string(StateComplete))
	respond.JSON(c, http.StatusOK, summary)
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context(), h.sessionID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, stats)
}

func (h *Handler) tts(c *gin.Context) {
	var req ttsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", nil)
		return
	}
	if len([]rune(text)) > maxTTSChars {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is too long", gin.H{"max_chars": maxTTSChars})
		return
	}
	clip, err := h.Svc.Speak(c.Request.Context(), text)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Audio(c, clip.ContentType, clip.Data)
}

// events streams session events over a websocket until the client leaves or the session goes away.
func (h *Handler) events(c *gin.Context) {
	id := h.sessionID(c)
	if _, err := h.Svc.Get(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	if h.Svc.Events == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "live events are disabled", nil)
		return
	}

	// Subscribe before the handshake so nothing published after it is missed.
	events, cancel := h.Svc.Events.Subscribe(id)
	defer cancel()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(h.AllowedOrigins),
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			wctx, cancelWrite := context.WithTimeout(ctx, wsWriteWait)
			err := wsjson.Write(wctx, conn, e)
			cancelWrite()
			if err != nil {
				return
			}
		}
	}
}

func (h *Handler) sessionID(c *gin.Context) string {
	id := c.Param("id")
	c.Set(middleware.SessionIDKey, id)
	return id
}

// writeError maps service errors onto the standard error envelope.
func writeError(c *gin.Context, err error) {
	var stateErr *InvalidStateError
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
	case errors.Is(err, ErrInterviewFinished):
		respond.Error(c, http.StatusGone, "interview_finished", err.Error(), nil)
	case errors.As(err, &stateErr):
		respond.Error(c, http.StatusConflict, "invalid_state", stateErr.Error(), gin.H{
			"current_state":  stateErr.Current,
			"allowed_states": stateErr.Allowed,
		})
	case errors.Is(err, ErrSession):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, speech.ErrRateLimited):
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "speech provider is rate limited", nil)
	case errors.Is(err, ErrUpstream):
		respond.Error(c, http.StatusBadGateway, "upstream_error", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusGatewayTimeout, "upstream_error", "request timed out", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal", "internal server error", nil)
	}
}

// originPatterns turns configured CORS origins into the host patterns websocket.Accept expects.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
