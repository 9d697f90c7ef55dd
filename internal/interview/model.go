package interview

import "time"

// State is a step of the interview state machine.
type State string

const (
	StateIdle       State = "IDLE"
	StateSetup      State = "SETUP"
	StateIntro      State = "INTRO"
	StateAsking     State = "ASKING"
	StateListening  State = "LISTENING"
	StateProcessing State = "PROCESSING"
	StateEvaluating State = "EVALUATING"
	StateComplete   State = "COMPLETE"
)

// AlertLevel grades coaching feedback.
type AlertLevel string

const (
	AlertOK       AlertLevel = "OK"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// AnswerEvaluation is the LLM's grading of one answer. Scores are 1-10.
type AnswerEvaluation struct {
	TechnicalAccuracy int    `json:"technical_accuracy"`
	Clarity           int    `json:"clarity"`
	Depth             int    `json:"depth"`
	Completeness      int    `json:"completeness"`
	ImprovementTip    string `json:"improvement_tip"`
	PositiveNote      string `json:"positive_note"`
}

// Overall is the mean of the four scores.
func (e AnswerEvaluation) Overall() float64 {
	return float64(e.TechnicalAccuracy+e.Clarity+e.Depth+e.Completeness) / 4
}

// Clamped returns a copy with every score forced into 1..10.
func (e AnswerEvaluation) Clamped() AnswerEvaluation {
	e.TechnicalAccuracy = clampScore(e.TechnicalAccuracy)
	e.Clarity = clampScore(e.Clarity)
	e.Depth = clampScore(e.Depth)
	e.Completeness = clampScore(e.Completeness)
	return e
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// CoachingFeedback describes delivery (not content) of an answer.
type CoachingFeedback struct {
	VolumeStatus   string     `json:"volume_status"`
	PaceStatus     string     `json:"pace_status"`
	FillerCount    int        `json:"filler_count"`
	WordsPerMinute float64    `json:"words_per_minute"`
	PrimaryAlert   string     `json:"primary_alert"`
	AlertLevel     AlertLevel `json:"alert_level"`
}

// Exchange is one question and the candidate's answer.
type Exchange struct {
	Question              string            `json:"question"`
	Answer                string            `json:"answer"`
	AnswerDurationSeconds float64           `json:"answer_duration_seconds"`
	Evaluation            *AnswerEvaluation `json:"evaluation,omitempty"`
	CoachingFeedback      *CoachingFeedback `json:"coaching_feedback,omitempty"`
	Timestamp             time.Time         `json:"timestamp"`
}

// Session is the full state of one interview.
type Session struct {
	SessionID           string     `json:"session_id"`
	State               State      `json:"state"`
	ResumeID            string     `json:"resume_id,omitempty"`
	ResumeText          string     `json:"resume_text"`
	JobDescription      string     `json:"job_description"`
	CurrentQuestion     string     `json:"current_question,omitempty"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	Exchanges           []Exchange `json:"exchanges"`
	TotalQuestionsAsked int        `json:"total_questions_asked"`
	TotalFillerWords    int        `json:"total_filler_words"`
	AverageWPM          float64    `json:"average_wpm"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// AverageScore is the mean Overall() across evaluated exchanges, 0 when none.
func (s *Session) AverageScore() float64 {
	var total float64
	var n int
	for _, ex := range s.Exchanges {
		if ex.Evaluation == nil {
			continue
		}
		total += ex.Evaluation.Overall()
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Summary is returned when an interview ends.
type Summary struct {
	SessionID       string     `json:"session_id"`
	TotalQuestions  int        `json:"total_questions"`
	AverageScore    float64    `json:"average_score"`
	AverageWPM      float64    `json:"average_wpm"`
	TotalFillers    int        `json:"total_fillers"`
	DurationSeconds float64    `json:"duration_seconds"`
	Exchanges       []Exchange `json:"exchanges"`
}

// AnswerResult is what ProcessAnswer hands back to callers.
type AnswerResult struct {
	Transcript string           `json:"transcript"`
	Coaching   CoachingFeedback `json:"coaching"`
	Evaluation AnswerEvaluation `json:"evaluation"`
}
