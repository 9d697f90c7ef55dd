package interview

import "time"

type startSessionRequest struct {
	ResumeText     string `json:"resume_text"`
	ResumeID       string `json:"resume_id"`
	JobDescription string `json:"job_description"`
}

type startSessionResponse struct {
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	ResumeID  string    `json:"resume_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type questionResponse struct {
	SessionID      string `json:"session_id"`
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
	AudioURL       string `json:"audio_url"`
}

type answerResponse struct {
	SessionID  string           `json:"session_id"`
	Transcript string           `json:"transcript"`
	Coaching   CoachingFeedback `json:"coaching"`
	Evaluation AnswerEvaluation `json:"evaluation"`
	Overall    float64          `json:"overall_score"`
}

type listSessionsResponse struct {
	Sessions []string `json:"sessions"`
	Count    int      `json:"count"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

func toAnswerResponse(id string, r AnswerResult) answerResponse {
	return answerResponse{
		SessionID:  id,
		Transcript: r.Transcript,
		Coaching:   r.Coaching,
		Evaluation: r.Evaluation,
		Overall:    round1(r.Evaluation.Overall()),
	}
}
