package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
	"shortform/internal/testsupport"
)

type fakeHandler struct {
	mu       sync.Mutex
	name     string
	execErr  error
	failures int
	calls    int
	fallback func(context.Context, *queue.Item) error
	onExec   func(*queue.Item)
}

func (f *fakeHandler) Prepare(ctx context.Context, item *queue.Item) error { return nil }

func (f *fakeHandler) Execute(ctx context.Context, item *queue.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New(f.name + " transient failure")
	}
	if f.execErr != nil {
		return f.execErr
	}
	if f.onExec != nil {
		f.onExec(item)
	}
	return nil
}

func (f *fakeHandler) HealthCheck(ctx context.Context) stage.Health { return stage.Healthy(f.name) }

func (f *fakeHandler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fallbackHandler struct {
	fakeHandler
}

func (f *fallbackHandler) Fallback(ctx context.Context, item *queue.Item) error {
	if f.fakeHandler.fallback != nil {
		return f.fakeHandler.fallback(ctx, item)
	}
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	produced []string
	rejected []string
	errored  []string
}

func (r *recordingNotifier) NotifyProduced(ctx context.Context, topic, artifactPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.produced = append(r.produced, topic)
	return nil
}

func (r *recordingNotifier) NotifyRejected(ctx context.Context, topic, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, reason)
	return nil
}

func (r *recordingNotifier) NotifyError(ctx context.Context, err error, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errored = append(r.errored, label)
	return nil
}

func (r *recordingNotifier) NotifyDaemonStarted(context.Context) error { return nil }
func (r *recordingNotifier) NotifyDaemonStopped(context.Context, int, int, time.Duration) error {
	return nil
}
func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func newTestManager(t *testing.T, set StageSet) (*Manager, *queue.Store, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithRetryPolicy(2, 0), testsupport.WithFastWorkflow())

	store := testsupport.MustOpenStore(t, cfg)

	notifier := &recordingNotifier{}
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	manager.ConfigureStages(set)
	return manager, store, notifier
}

func passingStages() (StageSet, map[string]*fakeHandler) {
	handlers := map[string]*fakeHandler{
		"research":  {name: "research"},
		"script":    {name: "script", onExec: func(i *queue.Item) { i.Script = "a script" }},
		"assets":    {name: "assets"},
		"narration": {name: "narration", onExec: func(i *queue.Item) { i.NarrationPath = "/tmp/narration.wav" }},
		"quality":   {name: "quality", onExec: func(i *queue.Item) { i.QualityReportJSON = `{"overall":0.9,"approved":true}` }},
		"assembly":  {name: "assembly", onExec: func(i *queue.Item) { i.ArtifactPath = "/tmp/short.mp4" }},
	}
	return StageSet{
		Research:  handlers["research"],
		Script:    handlers["script"],
		Assets:    handlers["assets"],
		Narration: handlers["narration"],
		Quality:   handlers["quality"],
		Assembly:  handlers["assembly"],
	}, handlers
}

func TestItemFlowsToCompleted(t *testing.T) {
	set, handlers := passingStages()
	manager, store, notifier := newTestManager(t, set)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Harriet Tubman", "", 45)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	final, err := manager.ProcessUntilSettled(ctx, item.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", final.Status, final.ErrorMessage)
	}
	for name, handler := range handlers {
		if handler.callCount() != 1 {
			t.Fatalf("stage %s executed %d times", name, handler.callCount())
		}
	}
	if len(notifier.produced) != 1 {
		t.Fatalf("expected completion notification, got %d", len(notifier.produced))
	}
	got := manager.SessionStats()
	if got.Produced != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
	if got.AvgQuality < 0.89 || got.AvgQuality > 0.91 {
		t.Fatalf("unexpected average quality %f", got.AvgQuality)
	}
}

func TestQualityRejectionIsTerminalAndNeverRetried(t *testing.T) {
	set, handlers := passingStages()
	handlers["quality"].execErr = services.Wrap(
		services.ErrContentRejected, "reviewing", "evaluate", "script contains blocked phrase", nil)
	manager, store, notifier := newTestManager(t, set)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Harriet Tubman", "", 45)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	final, err := manager.ProcessUntilSettled(ctx, item.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if final.Status != queue.StatusRejected {
		t.Fatalf("expected rejected, got %s", final.Status)
	}
	if handlers["quality"].callCount() != 1 {
		t.Fatalf("rejection must not be retried, got %d attempts", handlers["quality"].callCount())
	}
	if handlers["assembly"].callCount() != 0 {
		t.Fatal("assembly must never run for rejected content")
	}
	if len(notifier.rejected) != 1 {
		t.Fatalf("expected rejection notification, got %d", len(notifier.rejected))
	}

	// A retry sweep must leave the rejected item untouched.
	if _, err := store.RetryFailed(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	refreshed, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if refreshed.Status != queue.StatusRejected {
		t.Fatalf("rejected item must stay rejected, got %s", refreshed.Status)
	}
}

func TestTransientFailureRetriesThenSucceeds(t *testing.T) {
	set, handlers := passingStages()
	handlers["research"].failures = 1
	manager, store, _ := newTestManager(t, set)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Harriet Tubman", "", 45)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	final, err := manager.ProcessUntilSettled(ctx, item.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", final.Status)
	}
	if handlers["research"].callCount() != 2 {
		t.Fatalf("expected 2 research attempts, got %d", handlers["research"].callCount())
	}
}

func TestExhaustedRetriesFailItem(t *testing.T) {
	set, handlers := passingStages()
	handlers["research"].failures = 10
	manager, store, notifier := newTestManager(t, set)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Harriet Tubman", "", 45)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	final, err := manager.ProcessUntilSettled(ctx, item.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	if handlers["research"].callCount() != 2 {
		t.Fatalf("expected 2 attempts per policy, got %d", handlers["research"].callCount())
	}
	if len(notifier.errored) != 1 {
		t.Fatalf("expected error notification, got %d", len(notifier.errored))
	}
	if got := manager.SessionStats(); got.Failed != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}
}

func TestFallbackRescuesExhaustedStage(t *testing.T) {
	set, handlers := passingStages()
	research := &fallbackHandler{fakeHandler: fakeHandler{
		name:     "research",
		failures: 10,
		fallback: func(ctx context.Context, item *queue.Item) error {
			item.NeedsReview = true
			return nil
		},
	}}
	set.Research = research
	manager, store, _ := newTestManager(t, set)
	ctx := context.Background()

	item, err := store.NewRequest(ctx, "Harriet Tubman", "", 45)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	final, err := manager.ProcessUntilSettled(ctx, item.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed via fallback, got %s", final.Status)
	}
	if !final.NeedsReview {
		t.Fatal("fallback review flag must persist")
	}
	if handlers["assembly"].callCount() != 1 {
		t.Fatal("pipeline should continue after fallback")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	set, _ := passingStages()
	manager, store, _ := newTestManager(t, set)
	ctx := context.Background()

	if _, err := store.NewRequest(ctx, "Harriet Tubman", "", 45); err != nil {
		t.Fatalf("new request: %v", err)
	}
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := manager.Start(ctx); err == nil {
		t.Fatal("second start must fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		summary, err := store.Health(ctx)
		if err != nil {
			t.Fatalf("health: %v", err)
		}
		if summary.Completed == 1 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	manager.Stop()

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("expected item completed by daemon loop, got %+v", summary)
	}
}
