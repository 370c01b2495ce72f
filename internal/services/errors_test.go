package services

import (
	"errors"
	"testing"

	"shortform/internal/queue"
)

func TestWrapTagsMarker(t *testing.T) {
	err := Wrap(ErrTransient, "research", "fetch summary", "service unavailable", errors.New("status 503"))
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	want := "transient failure: research: fetch summary: service unavailable: status 503"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "assets", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected default transient marker, got %v", err)
	}
}

func TestFailureStatusClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want queue.Status
	}{
		{"content rejection", Wrap(ErrContentRejected, "quality_gate", "", "sensitivity floor not met", nil), queue.StatusRejected},
		{"transient", Wrap(ErrTransient, "research", "", "timeout", nil), queue.StatusFailed},
		{"external tool", Wrap(ErrExternalTool, "assembly", "", "renderer exited 1", nil), queue.StatusFailed},
	}
	for _, tc := range cases {
		if got := FailureStatus(tc.err); got != tc.want {
			t.Fatalf("%s: FailureStatus = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestIsPermanent(t *testing.T) {
	if !IsPermanent(Wrap(ErrContentRejected, "quality_gate", "", "blocked term", nil)) {
		t.Fatal("content rejection should be permanent")
	}
	if !IsPermanent(Wrap(ErrValidation, "script", "", "empty script", nil)) {
		t.Fatal("validation failure should be permanent")
	}
	if IsPermanent(Wrap(ErrTimeout, "narration", "", "engine hung", nil)) {
		t.Fatal("timeout should stay retryable")
	}
}

func TestDetailsStripsMarkerPrefix(t *testing.T) {
	err := Wrap(ErrExternalTool, "assembly", "render", "ffmpeg exited 1", nil)
	if got := Details(err).Message; got != "assembly: render: ffmpeg exited 1" {
		t.Fatalf("unexpected details %q", got)
	}
	if got := Details(nil).Message; got != "" {
		t.Fatalf("nil error should produce empty details, got %q", got)
	}
}
