package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"interview-backend/internal/extract"
	"interview-backend/internal/shared/storage/object"
	"interview-backend/internal/shared/telemetry"
	"interview-backend/internal/shared/util"
)

// Service stores uploaded resumes and their extracted text.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload saves the file to object storage, extracts its text and records it.
func (s *Service) Upload(ctx context.Context, fileName, contentType string, r io.Reader) (Resume, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Resume{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return Resume{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return Resume{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrTooLarge)
	}
	if len(data) == 0 {
		return Resume{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}

	text, mimeType, err := extract.Text(ctx, data, contentType, name)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Resume{}, err
		}
		return Resume{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if text == "" {
		return Resume{}, fmt.Errorf("%w: no text found in %s", ErrInvalidInput, name)
	}

	id := uuid.NewString()
	key := id + "/" + name
	size, err := s.Store.Put(ctx, key, mimeType, bytes.NewReader(data))
	if err != nil {
		return Resume{}, fmt.Errorf("store resume: %w", err)
	}

	res := Resume{
		ID:         id,
		FileName:   name,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: key,
		Checksum:   util.Checksum(data),
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, res); err != nil {
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			telemetry.Warn("resume.cleanup_failed", map[string]any{"storage_key": key, "error": delErr.Error()})
		}
		return Resume{}, fmt.Errorf("record resume: %w", err)
	}

	telemetry.Info("resume.uploaded", map[string]any{
		"resume_id":  id,
		"mime_type":  mimeType,
		"size_bytes": size,
		"text_chars": len(text),
	})
	return res, nil
}

// Get returns resume metadata and text.
func (s *Service) Get(ctx context.Context, id string) (Resume, error) {
	if id == "" {
		return Resume{}, ErrNotFound
	}
	return s.Repo.Get(ctx, id)
}

// Text returns the extracted text of a resume.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	res, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}
