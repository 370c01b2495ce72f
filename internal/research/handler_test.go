package research

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
)

const harrietExtract = "Harriet Tubman (1822 - 1913) was an American abolitionist. " +
	"She escaped slavery and led dozens of enslaved people to freedom. " +
	"She served as a scout during the Civil War."

func newSummaryServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestHandler(t *testing.T, server *httptest.Server) *Handler {
	t.Helper()
	cfg := config.Default().Research
	cfg.BaseURL = server.URL
	client := NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	return NewHandlerWithClient(cfg, client, logging.NewNop())
}

func TestExecuteBuildsResearchPayload(t *testing.T) {
	server := newSummaryServer(t, http.StatusOK,
		`{"title":"Harriet Tubman","description":"American abolitionist","extract":"`+harrietExtract+`"}`)
	handler := newTestHandler(t, server)

	item := &queue.Item{Topic: "Harriet Tubman"}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("execute: %v", err)
	}

	payload, err := item.Research()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Title != "Harriet Tubman" {
		t.Fatalf("unexpected title %q", payload.Title)
	}
	if len(payload.Facts) == 0 {
		t.Fatal("expected extracted facts")
	}
	if payload.BirthYear != 1822 || payload.DeathYear != 1913 {
		t.Fatalf("unexpected life years %d-%d", payload.BirthYear, payload.DeathYear)
	}
	if payload.VerificationScore < 0.5 {
		t.Fatalf("expected confident verification, got %f", payload.VerificationScore)
	}
}

func TestExecuteNotFoundIsPermanent(t *testing.T) {
	server := newSummaryServer(t, http.StatusNotFound, `{"title":"Not found"}`)
	handler := newTestHandler(t, server)

	err := handler.Execute(context.Background(), &queue.Item{Topic: "Nobody Realman"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsPermanent(err) {
		t.Fatalf("missing topic should be permanent, got %v", err)
	}
}

func TestExecuteServerErrorIsTransient(t *testing.T) {
	server := newSummaryServer(t, http.StatusInternalServerError, "boom")
	handler := newTestHandler(t, server)

	err := handler.Execute(context.Background(), &queue.Item{Topic: "Harriet Tubman"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestPrepareRejectsEmptyTopic(t *testing.T) {
	handler := NewHandlerWithClient(config.Default().Research, NewClient(), logging.NewNop())
	err := handler.Prepare(context.Background(), &queue.Item{Topic: "  "})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFallbackFlagsReview(t *testing.T) {
	handler := NewHandlerWithClient(config.Default().Research, NewClient(), logging.NewNop())

	item := &queue.Item{Topic: "Harriet Tubman"}
	if err := handler.Fallback(context.Background(), item); err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if !item.NeedsReview {
		t.Fatal("fallback must flag manual review")
	}
	payload, err := item.Research()
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.VerificationScore >= 0.5 {
		t.Fatalf("fallback verification should be low, got %f", payload.VerificationScore)
	}
}

func TestLifeYears(t *testing.T) {
	tests := []struct {
		text         string
		birth, death int
	}{
		{"Harriet Tubman (1822 - 1913) was an abolitionist", 1822, 1913},
		{"Born in 1867, she pioneered radioactivity research", 1867, 0},
		{"No dates here", 0, 0},
	}
	for _, tt := range tests {
		birth, death := lifeYears(tt.text)
		if birth != tt.birth || death != tt.death {
			t.Fatalf("lifeYears(%q) = %d, %d; want %d, %d", tt.text, birth, death, tt.birth, tt.death)
		}
	}
}
