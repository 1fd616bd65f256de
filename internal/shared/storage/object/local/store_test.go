package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"resume-ats/internal/shared/storage/object"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	payload := []byte("%PDF-1.4\n" + strings.Repeat("x", 5000))

	key, size, mimeType, err := store.Save(ctx, "user-1", "cv.pdf", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	if mimeType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %s", mimeType)
	}
	if !strings.HasSuffix(key, "_cv.pdf") {
		t.Fatalf("unexpected key %s", key)
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatalf("stored bytes differ")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../secret"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
}

func TestSaveWithKey(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	n, err := store.SaveWithKey(ctx, "u/file.pdf.extracted.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}
	rc, err := store.Open(ctx, "u/file.pdf.extracted.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "hello" {
		t.Fatalf("unexpected content %q", got)
	}
}
