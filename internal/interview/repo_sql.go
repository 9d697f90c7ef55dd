package interview

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interview-backend/internal/shared/storage/db"
)

// Fixed width so TEXT columns sort and compare chronologically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLRepo implements Repo on Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect string
	now     func() time.Time
}

// NewSQLRepo constructs a SQLRepo for the given db.Dialect* value.
func NewSQLRepo(database *sql.DB, dialect string) *SQLRepo {
	return &SQLRepo{DB: database, Dialect: dialect, now: time.Now}
}

func (r *SQLRepo) q(query string) string { return db.Rebind(r.Dialect, query) }

// Save upserts the session row and rewrites its exchanges in one transaction.
func (r *SQLRepo) Save(ctx context.Context, s *Session) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
INSERT INTO sessions (
    session_id,
    state,
    resume_id,
    resume_text,
    job_description,
    current_question,
    started_at,
    ended_at,
    total_questions_asked,
    total_filler_words,
    average_wpm,
    created_at,
    updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO UPDATE SET
    state = excluded.state,
    resume_id = excluded.resume_id,
    current_question = excluded.current_question,
    started_at = excluded.started_at,
    ended_at = excluded.ended_at,
    total_questions_asked = excluded.total_questions_asked,
    total_filler_words = excluded.total_filler_words,
    average_wpm = excluded.average_wpm,
    updated_at = excluded.updated_at`

	if _, err := tx.ExecContext(ctx, r.q(upsert),
		s.SessionID,
		string(s.State),
		nullString(s.ResumeID),
		s.ResumeText,
		s.JobDescription,
		nullString(s.CurrentQuestion),
		nullTime(s.StartedAt),
		nullTime(s.EndedAt),
		s.TotalQuestionsAsked,
		s.TotalFillerWords,
		s.AverageWPM,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM evaluations WHERE exchange_id IN (SELECT id FROM exchanges WHERE session_id = ?)`,
		`DELETE FROM coaching_feedback WHERE exchange_id IN (SELECT id FROM exchanges WHERE session_id = ?)`,
		`DELETE FROM exchanges WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, r.q(stmt), s.SessionID); err != nil {
			return fmt.Errorf("clear exchanges: %w", err)
		}
	}

	const insertExchange = `
INSERT INTO exchanges (session_id, question, answer, answer_duration_seconds, timestamp, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`
	const insertEvaluation = `
INSERT INTO evaluations (exchange_id, technical_accuracy, clarity, depth, completeness, improvement_tip, positive_note)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	const insertCoaching = `
INSERT INTO coaching_feedback (exchange_id, volume_status, pace_status, filler_count, words_per_minute, primary_alert, alert_level)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	created := formatTime(r.now())
	for _, ex := range s.Exchanges {
		var id int64
		if err := tx.QueryRowContext(ctx, r.q(insertExchange),
			s.SessionID, ex.Question, ex.Answer, ex.AnswerDurationSeconds, formatTime(ex.Timestamp), created,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert exchange: %w", err)
		}
		if e := ex.Evaluation; e != nil {
			if _, err := tx.ExecContext(ctx, r.q(insertEvaluation),
				id, e.TechnicalAccuracy, e.Clarity, e.Depth, e.Completeness, e.ImprovementTip, e.PositiveNote,
			); err != nil {
				return fmt.Errorf("insert evaluation: %w", err)
			}
		}
		if c := ex.CoachingFeedback; c != nil {
			if _, err := tx.ExecContext(ctx, r.q(insertCoaching),
				id, c.VolumeStatus, c.PaceStatus, c.FillerCount, c.WordsPerMinute, c.PrimaryAlert, string(c.AlertLevel),
			); err != nil {
				return fmt.Errorf("insert coaching: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reads a session and its exchanges in ask order.
func (r *SQLRepo) Load(ctx context.Context, id string) (*Session, error) {
	const query = `
SELECT session_id, state, resume_id, resume_text, job_description, current_question, started_at, ended_at,
       total_questions_asked, total_filler_words, average_wpm, created_at, updated_at
FROM sessions
WHERE session_id = ?`

	var (
		s                        Session
		state                    string
		resumeID, resumeText     sql.NullString
		jobDescription, question sql.NullString
		startedAt, endedAt       sql.NullString
		createdAt, updatedAt     string
	)
	err := r.DB.QueryRowContext(ctx, r.q(query), id).Scan(
		&s.SessionID,
		&state,
		&resumeID,
		&resumeText,
		&jobDescription,
		&question,
		&startedAt,
		&endedAt,
		&s.TotalQuestionsAsked,
		&s.TotalFillerWords,
		&s.AverageWPM,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.State = State(state)
	s.ResumeID = resumeID.String
	s.ResumeText = resumeText.String
	s.JobDescription = jobDescription.String
	s.CurrentQuestion = question.String
	if s.StartedAt, err = parseNullTime(startedAt); err != nil {
		return nil, err
	}
	if s.EndedAt, err = parseNullTime(endedAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	s.Exchanges, err = r.loadExchanges(ctx, id)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLRepo) loadExchanges(ctx context.Context, sessionID string) ([]Exchange, error) {
	const query = `
SELECT e.question, e.answer, e.answer_duration_seconds, e.timestamp,
       ev.technical_accuracy, ev.clarity, ev.depth, ev.completeness, ev.improvement_tip, ev.positive_note,
       cf.volume_status, cf.pace_status, cf.filler_count, cf.words_per_minute, cf.primary_alert, cf.alert_level
FROM exchanges e
LEFT JOIN evaluations ev ON ev.exchange_id = e.id
LEFT JOIN coaching_feedback cf ON cf.exchange_id = e.id
WHERE e.session_id = ?
ORDER BY e.id`

	rows, err := r.DB.QueryContext(ctx, r.q(query), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Exchange{}
	for rows.Next() {
		var (
			ex                              Exchange
			question, answer                sql.NullString
			ts                              string
			accuracy, clarity, depth, compl sql.NullInt64
			tip, note                       sql.NullString
			volume, pace, alert, level      sql.NullString
			fillers                         sql.NullInt64
			wpm                             sql.NullFloat64
		)
		if err := rows.Scan(
			&question, &answer, &ex.AnswerDurationSeconds, &ts,
			&accuracy, &clarity, &depth, &compl, &tip, &note,
			&volume, &pace, &fillers, &wpm, &alert, &level,
		); err != nil {
			return nil, err
		}
		ex.Question = question.String
		ex.Answer = answer.String
		if ex.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		if accuracy.Valid {
			ex.Evaluation = &AnswerEvaluation{
				TechnicalAccuracy: int(accuracy.Int64),
				Clarity:           int(clarity.Int64),
				Depth:             int(depth.Int64),
				Completeness:      int(compl.Int64),
				ImprovementTip:    tip.String,
				PositiveNote:      note.String,
			}
		}
		if level.Valid {
			ex.CoachingFeedback = &CoachingFeedback{
				VolumeStatus:   volume.String,
				PaceStatus:     pace.String,
				FillerCount:    int(fillers.Int64),
				WordsPerMinute: wpm.Float64,
				PrimaryAlert:   alert.String,
				AlertLevel:     AlertLevel(level.String),
			}
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Delete removes a session; exchanges go with it.
func (r *SQLRepo) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM evaluations WHERE exchange_id IN (SELECT id FROM exchanges WHERE session_id = ?)`,
		`DELETE FROM coaching_feedback WHERE exchange_id IN (SELECT id FROM exchanges WHERE session_id = ?)`,
		`DELETE FROM exchanges WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, r.q(stmt), id); err != nil {
			return false, err
		}
	}
	res, err := tx.ExecContext(ctx, r.q(`DELETE FROM sessions WHERE session_id = ?`), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// List returns session ids, newest first.
func (r *SQLRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CleanupOlderThan deletes sessions created before now-maxAge and reports how many went.
func (r *SQLRepo) CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := formatTime(r.now().Add(-maxAge))

	rows, err := r.DB.QueryContext(ctx, r.q(`SELECT session_id FROM sessions WHERE created_at < ?`), cutoff)
	if err != nil {
		return 0, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range ids {
		ok, err := r.Delete(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// Stats reports row counts.
func (r *SQLRepo) Stats(ctx context.Context) (map[string]any, error) {
	var sessions, exchanges int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&sessions); err != nil {
		return nil, err
	}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&exchanges); err != nil {
		return nil, err
	}
	return map[string]any{
		"backend":         r.Dialect,
		"total_sessions":  sessions,
		"total_exchanges": exchanges,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

var _ Repo = (*SQLRepo)(nil)
