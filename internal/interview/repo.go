package interview

import (
	"context"
	"time"
)

// Repo is durable storage for sessions.
type Repo interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]string, error)
	CleanupOlderThan(ctx context.Context, maxAge time.Duration) (int, error)
	Stats(ctx context.Context) (map[string]any, error)
}

// HotStore keeps serialized sessions for fast access between requests.
type HotStore interface {
	Set(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListActive(ctx context.Context) ([]string, error)
}

// EventLog records session events for later review.
type EventLog interface {
	Record(sessionID, event string, fields map[string]any)
	WriteSummary(sessionID string, summary any) error
}

// ResumeSource resolves uploaded resumes to their extracted text.
type ResumeSource interface {
	Text(ctx context.Context, id string) (string, error)
}
