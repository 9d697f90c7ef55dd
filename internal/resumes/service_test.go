package resumes

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"interview-backend/internal/shared/storage/db"
	"interview-backend/internal/shared/storage/object/local"
)

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := &Service{Store: local.New(t.TempDir()), Repo: NewMemoryRepo()}
	big := bytes.Repeat([]byte("a"), MaxUploadSize+1)
	_, err := svc.Upload(context.Background(), "big.txt", "text/plain", bytes.NewReader(big))
	if !errors.Is(err, ErrTooLarge) || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestUploadRejectsTraversalName(t *testing.T) {
	svc := &Service{Store: local.New(t.TempDir()), Repo: NewMemoryRepo()}
	_, err := svc.Upload(context.Background(), "../etc/passwd", "text/plain", bytes.NewReader([]byte("x")))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestTextReturnsExtractedText(t *testing.T) {
	svc := &Service{Store: local.New(t.TempDir()), Repo: NewMemoryRepo()}
	res, err := svc.Upload(context.Background(), "cv.md", "", bytes.NewReader([]byte("# Jane\nGo developer")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	text, err := svc.Text(context.Background(), res.ID)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "# Jane\nGo developer" {
		t.Fatalf("unexpected text %q", text)
	}
	if _, err := svc.Text(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLRepoCreateRebindsForPostgres(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8)")).
		WithArgs("r-1", "cv.pdf", "application/pdf", int64(42), "r-1/cv.pdf", "abc", "text", "2025-01-02T03:04:05.000000Z").
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := &SQLRepo{DB: conn, Dialect: db.DialectPostgres}
	err = repo.Create(context.Background(), Resume{
		ID:         "r-1",
		FileName:   "cv.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  42,
		StorageKey: "r-1/cv.pdf",
		Checksum:   "abc",
		Text:       "text",
		CreatedAt:  created,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLRepoRoundTripSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "resumes.db"), db.DefaultSQLiteOptions())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer conn.Close()
	if err := db.RunMigrations(ctx, conn, db.DialectSQLite); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}

	repo := &SQLRepo{DB: conn, Dialect: db.DialectSQLite}
	want := Resume{
		ID:         "r-1",
		FileName:   "cv.txt",
		MimeType:   "text/plain",
		SizeBytes:  11,
		StorageKey: "r-1/cv.txt",
		Checksum:   "abc",
		Text:       "hello world",
		CreatedAt:  time.Date(2025, 1, 2, 3, 4, 5, 6000, time.UTC),
	}
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.Get(ctx, "r-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("created_at %v != %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
