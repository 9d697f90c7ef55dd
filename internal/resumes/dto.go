package resumes

import "time"

// ResumeResponse is the outward-facing representation of a resume.
type ResumeResponse struct {
	ResumeID   string    `json:"resume_id"`
	FileName   string    `json:"file_name"`
	MimeType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	Checksum   string    `json:"checksum"`
	TextLength int       `json:"text_length"`
	Preview    string    `json:"preview"`
	UploadedAt time.Time `json:"uploaded_at"`
}

const previewLen = 280

func toResponse(r Resume) ResumeResponse {
	preview := []rune(r.Text)
	if len(preview) > previewLen {
		preview = preview[:previewLen]
	}
	return ResumeResponse{
		ResumeID:   r.ID,
		FileName:   r.FileName,
		MimeType:   r.MimeType,
		SizeBytes:  r.SizeBytes,
		Checksum:   r.Checksum,
		TextLength: len(r.Text),
		Preview:    string(preview),
		UploadedAt: r.CreatedAt,
	}
}
