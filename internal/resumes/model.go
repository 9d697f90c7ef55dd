package resumes

import (
	"errors"
	"time"
)

// MaxUploadSize bounds resume uploads.
const MaxUploadSize = 10 << 20 // 10MB

var (
	ErrNotFound     = errors.New("resume not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTooLarge     = errors.New("resume exceeds 10MB")
)

// Resume is an uploaded resume and its extracted text.
type Resume struct {
	ID         string
	FileName   string
	MimeType   string
	SizeBytes  int64
	StorageKey string
	Checksum   string
	Text       string
	CreatedAt  time.Time
}
