package publish

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"shortform/internal/config"
	"shortform/internal/experiment"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
)

type fakeUploader struct {
	platform string
	calls    int
	fail     bool
	lastMeta queue.PublishMetadata
}

func (f *fakeUploader) Platform() string { return f.platform }

func (f *fakeUploader) Upload(ctx context.Context, item *queue.Item, meta queue.PublishMetadata) (string, error) {
	f.calls++
	f.lastMeta = meta
	if f.fail {
		return "", errors.New("upload refused")
	}
	return fmt.Sprintf("%s-%d", f.platform, item.ID), nil
}

func publishableItem(t *testing.T) *queue.Item {
	t.Helper()
	item := &queue.Item{ID: 1, Topic: "Harriet Tubman", ArtifactPath: "/tmp/short-1.mp4"}
	if err := item.SetPublishMeta(queue.PublishMetadata{Title: "The story of Harriet Tubman"}); err != nil {
		t.Fatalf("set metadata: %v", err)
	}
	return item
}

func newTestPublisher(t *testing.T, cfg config.Publishing, uploaders []Uploader, engine *experiment.Engine) *Publisher {
	t.Helper()
	return NewPublisher(cfg, uploaders, engine, logging.NewNop())
}

func TestPublishFansOutToAllPlatforms(t *testing.T) {
	youtube := &fakeUploader{platform: "youtube"}
	tiktok := &fakeUploader{platform: "tiktok"}
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube", "tiktok"}, DailyQuota: 10},
		[]Uploader{youtube, tiktok}, nil)

	results, err := pub.Publish(context.Background(), publishableItem(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if youtube.calls != 1 || tiktok.calls != 1 {
		t.Fatalf("expected one upload per platform, got %d/%d", youtube.calls, tiktok.calls)
	}
}

func TestPublishQuotaExhaustionIsTransient(t *testing.T) {
	uploader := &fakeUploader{platform: "youtube"}
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube"}, DailyQuota: 1},
		[]Uploader{uploader}, nil)

	ctx := context.Background()
	if _, err := pub.Publish(ctx, publishableItem(t)); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	_, err := pub.Publish(ctx, publishableItem(t))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient quota error, got %v", err)
	}
	if uploader.calls != 1 {
		t.Fatalf("second upload must not run, got %d calls", uploader.calls)
	}
}

func TestPublishUnknownPlatformIsConfigurationError(t *testing.T) {
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"vimeo"}, DailyQuota: 5}, nil, nil)

	_, err := pub.Publish(context.Background(), publishableItem(t))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPublishUploadFailureIsTransient(t *testing.T) {
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube"}, DailyQuota: 5},
		[]Uploader{&fakeUploader{platform: "youtube", fail: true}}, nil)

	_, err := pub.Publish(context.Background(), publishableItem(t))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient upload error, got %v", err)
	}
}

func newTestEngine(t *testing.T, cfg config.Experiments) (*experiment.Engine, *experiment.Store) {
	t.Helper()
	store, err := experiment.OpenStorePath(filepath.Join(t.TempDir(), "experiments.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return experiment.NewEngine(cfg, store), store
}

func TestPublishExposureRegistersVariations(t *testing.T) {
	engine, store := newTestEngine(t, config.Experiments{Enabled: true, ExposureFraction: 1, MaxPerDimension: 2})

	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube"}, DailyQuota: 5},
		[]Uploader{&fakeUploader{platform: "youtube"}}, engine)

	ctx := context.Background()
	results, err := pub.Publish(ctx, publishableItem(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !results[0].Exposed {
		t.Fatal("full exposure fraction must expose every item")
	}
	if results[0].VariationID == "" {
		t.Fatal("exposed result must name the applied variation")
	}

	variations, err := store.ContentVariations(ctx, 1)
	if err != nil {
		t.Fatalf("read variations: %v", err)
	}
	if len(variations) == 0 {
		t.Fatal("expected registered variations")
	}
	for _, v := range variations {
		if v.ExposureFraction != 1 {
			t.Fatalf("variation %s stored fraction %v, want 1", v.ID, v.ExposureFraction)
		}
		if v.Baseline.Title != "The story of Harriet Tubman" {
			t.Fatalf("variation %s stored baseline %q", v.ID, v.Baseline.Title)
		}
	}
}

func TestPublishAppliesExposedVariationMetadata(t *testing.T) {
	engine, _ := newTestEngine(t, config.Experiments{Enabled: true, ExposureFraction: 1, MaxPerDimension: 2})

	uploader := &fakeUploader{platform: "youtube"}
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube"}, DailyQuota: 5},
		[]Uploader{uploader}, engine)

	results, err := pub.Publish(context.Background(), publishableItem(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	// At full exposure the first generated variation wins the coin, so the
	// upload must carry its title treatment instead of the baseline.
	want := experiment.VariationID(1, "youtube", experiment.DimensionTitle, 0)
	if results[0].VariationID != want {
		t.Fatalf("applied variation %s, want %s", results[0].VariationID, want)
	}
	if uploader.lastMeta.Title == "The story of Harriet Tubman" {
		t.Fatal("upload still carried the baseline title")
	}
	if uploader.lastMeta.Title != "Did you know this about Harriet Tubman? 🤔" {
		t.Fatalf("upload carried unexpected title %q", uploader.lastMeta.Title)
	}
}

func TestPublishZeroFractionNeverApplies(t *testing.T) {
	engine, _ := newTestEngine(t, config.Experiments{Enabled: true, ExposureFraction: 0, MaxPerDimension: 2})

	uploader := &fakeUploader{platform: "youtube"}
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube"}, DailyQuota: 5},
		[]Uploader{uploader}, engine)

	results, err := pub.Publish(context.Background(), publishableItem(t))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if results[0].Exposed || results[0].VariationID != "" {
		t.Fatalf("zero fraction must publish the baseline, got %+v", results[0])
	}
	if uploader.lastMeta.Title != "The story of Harriet Tubman" {
		t.Fatalf("upload carried %q, want the baseline title", uploader.lastMeta.Title)
	}
}

func TestRecordMetricsForwardsToEngine(t *testing.T) {
	engine, store := newTestEngine(t, config.Experiments{Enabled: true, ExposureFraction: 1, MaxPerDimension: 2})
	pub := newTestPublisher(t, config.Publishing{Platforms: []string{"youtube"}, DailyQuota: 5}, nil, engine)

	ctx := context.Background()
	if _, err := engine.Generate(ctx, 1, "Harriet Tubman", "youtube", experiment.Payload{}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	id := experiment.VariationID(1, "youtube", experiment.DimensionTitle, 0)
	if err := pub.RecordMetrics(ctx, id, map[string]float64{"views": 10}); err != nil {
		t.Fatalf("record metrics: %v", err)
	}
	outcome, err := store.OutcomeFor(ctx, id)
	if err != nil {
		t.Fatalf("read outcome: %v", err)
	}
	if outcome == nil || outcome.Metrics["views"] != 10 {
		t.Fatalf("outcome not recorded: %+v", outcome)
	}
}
