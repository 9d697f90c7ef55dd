package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// MaxFileNameLen caps sanitized names; longer names are cut before the extension.
const MaxFileNameLen = 100

// ErrInvalidFileName is returned for empty names and traversal attempts.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName turns an uploaded file name into one safe to use as an object key suffix
// or a temp file name. Separators and anything outside letters, digits, '.', '-' and '_'
// become '_'; a leading '-' or '.' is replaced so the name is never read as a flag or hidden file.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	s := strings.TrimSpace(name)
	if s == "" {
		return "", ErrInvalidFileName
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out[0] == '-' || out[0] == '.' {
		out = "_" + out[1:]
	}
	if strings.Trim(out, "_") == "" {
		return "", ErrInvalidFileName
	}

	if len(out) > MaxFileNameLen {
		ext := filepath.Ext(out)
		if len(ext) > 10 {
			ext = ""
		}
		out = out[:MaxFileNameLen-len(ext)] + ext
	}
	return out, nil
}
