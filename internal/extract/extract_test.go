package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf16"

	"resume-ats/internal/extract/extracttest"
	"resume-ats/internal/shared/storage/object/local"
)

func TestExtractTextFromBytes_PDFPagesInOrder(t *testing.T) {
	data := extracttest.PDF("John Doe, john@x.com", "Skills: JavaScript, Python")

	text, err := ExtractTextFromBytes(context.Background(), data, "application/pdf", "cv.pdf")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	first := strings.Index(text, "john@x.com")
	second := strings.Index(text, "JavaScript")
	if first < 0 || second < 0 {
		t.Fatalf("expected both pages in output, got %q", text)
	}
	if first > second {
		t.Fatalf("expected page order preserved, got %q", text)
	}
}

func TestExtractTextFromBytes_DOCX(t *testing.T) {
	data := extracttest.DOCX("Jane Roe", "Go & Kubernetes")

	text, err := ExtractTextFromBytes(context.Background(), data, "", "resume.docx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if text != "Jane Roe\nGo & Kubernetes" {
		t.Fatalf("unexpected docx text %q", text)
	}
}

func TestExtractTextFromBytes_DOCXWithoutRels(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/document.xml")
	_, _ = w.Write([]byte(`<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>Only body</w:t></w:r></w:p></w:body></w:document>`))
	_ = zw.Close()

	text, err := ExtractTextFromBytes(context.Background(), buf.Bytes(), "", "resume.docx")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if text != "Only body" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextFromBytes_ZipDocxNormalizes(t *testing.T) {
	data := extracttest.DOCX("hello")
	if _, err := ExtractTextFromBytes(context.Background(), data, "application/zip", ""); err != nil {
		t.Fatalf("expected docx to extract from zip mime, got error: %v", err)
	}
}

func TestExtractTextFromBytes_RealZipRejected(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}

	_, err = ExtractTextFromBytes(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestExtractTextFromBytes_UnsupportedExtension(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("plain"), "text/plain", "cv.txt")
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
}

func TestExtractTextFromBytes_CorruptPDF(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("%PDF-1.4 garbage without xref"), "application/pdf", "cv.pdf")
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractionError, got %T %v", err, err)
	}
	if extractErr.Format != "pdf" || extractErr.Cause == nil {
		t.Fatalf("expected pdf cause, got %+v", extractErr)
	}
}

func TestExtractTextFromBytes_CorruptDOCX(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("not a zip"), "", "cv.docx")
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractionError, got %T %v", err, err)
	}
}

func TestExtractTextFromBytes_LegacyDOC(t *testing.T) {
	var data []byte
	data = append(data, oleSignature...)
	data = append(data, make([]byte, 64)...)
	for _, u := range utf16.Encode([]rune("Senior Go developer with ten years")) {
		data = append(data, byte(u), byte(u>>8))
	}
	data = append(data, 0, 0, 0, 0)

	text, err := ExtractTextFromBytes(context.Background(), data, "application/msword", "old.doc")
	if err != nil {
		t.Fatalf("ExtractTextFromBytes: %v", err)
	}
	if !strings.Contains(text, "Senior Go developer") {
		t.Fatalf("unexpected doc text %q", text)
	}
}

func TestExtractTextFromBytes_DOCWithoutTextFails(t *testing.T) {
	_, err := ExtractTextFromBytes(context.Background(), []byte("plainly not ole"), "", "old.doc")
	var extractErr *ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
}

func TestExtractTextMissingObject(t *testing.T) {
	store := local.New(t.TempDir())
	_, err := ExtractText(context.Background(), store, "nobody/missing.pdf", "application/pdf", "missing.pdf")
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestExtractTextStoresExtractedCopy(t *testing.T) {
	store := local.New(t.TempDir())
	ctx := context.Background()
	key, _, mimeType, err := store.Save(ctx, "user-1", "cv.docx", bytes.NewReader(extracttest.DOCX("Hello world")))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	text, err := ExtractText(ctx, store, key, mimeType, "cv.docx")
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("unexpected text %q", text)
	}

	rc, err := store.Open(ctx, key+ExtractedSuffix)
	if err != nil {
		t.Fatalf("expected extracted copy: %v", err)
	}
	defer rc.Close()
	cached, _ := io.ReadAll(rc)
	if string(cached) != text {
		t.Fatalf("cached text mismatch: %q", cached)
	}
}
