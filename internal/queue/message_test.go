package queue

import (
	"reflect"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		ResumeID:   "resume-123",
		Retry:      true,
		RequestID:  "request-456",
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Version:    MessageVersion,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestDecodeMessageOmitsRetryByDefault(t *testing.T) {
	got, err := DecodeMessage([]byte(`{"resumeId":"r1","requestId":"q","enqueuedAt":"","version":1}`))
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Retry {
		t.Fatalf("expected retry false")
	}
}

func TestDecodeMessageInvalid(t *testing.T) {
	if _, err := DecodeMessage([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
