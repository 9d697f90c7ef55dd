package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Supported resume formats.
const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// ErrUnsupported is returned for formats with no text extractor.
var ErrUnsupported = errors.New("unsupported document type")

// Text extracts plain text from a resume payload and reports the detected mime type.
// PDF goes through github.com/ledongthuc/pdf; DOCX is read straight from word/document.xml.
func Text(ctx context.Context, data []byte, mimeType, fileName string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if len(data) == 0 {
		return "", "", errors.New("empty document")
	}

	detected := DetectMimeType(mimeType, fileName, data)
	var (
		text string
		err  error
	)
	switch detected {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	case MimeText:
		if !utf8.Valid(data) {
			return "", detected, fmt.Errorf("%w: text is not valid utf-8", ErrUnsupported)
		}
		text = string(data)
	default:
		return "", detected, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}
	if err != nil {
		return "", detected, fmt.Errorf("extract %s: %w", detected, err)
	}
	return strings.TrimSpace(text), detected, nil
}

// DetectMimeType settles on one of the supported types from the declared type, the file
// extension and the content itself. Anything else comes back as the sniffed type.
func DetectMimeType(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	ext := strings.ToLower(filepath.Ext(fileName))

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return MimePDF
	case clean == MimeDOCX || ext == ".docx" || clean == "application/zip" || bytes.HasPrefix(data, []byte("PK\x03\x04")):
		if isDOCX(data) {
			return MimeDOCX
		}
		return "application/zip"
	case clean == MimeText || ext == ".txt" || ext == ".md":
		return MimeText
	}

	sniffed := strings.Split(http.DetectContentType(data), ";")[0]
	if sniffed == MimeText {
		return MimeText
	}
	if clean != "" && clean != "application/octet-stream" {
		return clean
	}
	return sniffed
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc := docxDocument(data)
	if doc == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return stripDocxXML(string(raw)), nil
}

func isDOCX(data []byte) bool {
	return docxDocument(data) != nil
}

func docxDocument(data []byte) *zip.File {
	if len(data) == 0 {
		return nil
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return f
		}
	}
	return nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
