package publish

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"golang.org/x/time/rate"

	"shortform/internal/config"
	"shortform/internal/experiment"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
)

// Uploader pushes a rendered artifact to one platform. Implementations wrap
// the platform SDKs; tests use fakes.
type Uploader interface {
	Platform() string
	Upload(ctx context.Context, item *queue.Item, meta queue.PublishMetadata) (externalID string, err error)
}

// Publisher fans a completed item out to the configured platforms under a
// per-instance daily quota. When experiments are enabled it exposes a share
// of items to variation treatments and registers the variation sets so later
// metric deliveries can be attributed.
type Publisher struct {
	cfg       config.Publishing
	uploaders map[string]Uploader
	engine    *experiment.Engine
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewPublisher builds a Publisher. The quota limiter belongs to this
// instance; two publishers never share a budget.
func NewPublisher(cfg config.Publishing, uploaders []Uploader, engine *experiment.Engine, logger *slog.Logger) *Publisher {
	byPlatform := make(map[string]Uploader, len(uploaders))
	for _, u := range uploaders {
		byPlatform[u.Platform()] = u
	}

	perDay := cfg.DailyQuota
	if perDay <= 0 {
		perDay = 1
	}
	// Refill spread across the day, with a burst of the full daily budget.
	limiter := rate.NewLimiter(rate.Every(24*time.Hour/time.Duration(perDay)), perDay)

	publisherLogger := logger
	if publisherLogger != nil {
		publisherLogger = publisherLogger.With(logging.String("component", "publish"))
	}
	return &Publisher{
		cfg:       cfg,
		uploaders: byPlatform,
		engine:    engine,
		limiter:   limiter,
		logger:    publisherLogger,
	}
}

// Result records one platform publication. VariationID names the variation
// whose treatment the upload carried, empty when the baseline was published.
type Result struct {
	Platform    string
	ExternalID  string
	Exposed     bool
	VariationID string
}

// Publish uploads the item to every configured platform. Quota exhaustion is
// a transient failure so the item can be retried once budget refills.
func (p *Publisher) Publish(ctx context.Context, item *queue.Item) ([]Result, error) {
	meta, err := item.PublishMeta()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "publishing", "decode metadata", "Publish metadata is unreadable", err)
	}

	var results []Result
	for _, platform := range p.cfg.Platforms {
		uploader, ok := p.uploaders[platform]
		if !ok {
			return results, services.Wrap(
				services.ErrConfiguration,
				"publishing",
				"resolve uploader",
				fmt.Sprintf("No uploader registered for platform %q", platform),
				nil,
			)
		}

		if !p.limiter.Allow() {
			return results, services.Wrap(
				services.ErrTransient,
				"publishing",
				"check quota",
				"Daily publish quota exhausted",
				nil,
			)
		}

		platformMeta, variationID := p.applyExperiment(ctx, item, platform, meta)
		exposed := variationID != ""

		externalID, err := uploader.Upload(ctx, item, platformMeta)
		if err != nil {
			return results, services.Wrap(
				services.ErrTransient,
				"publishing",
				"upload",
				fmt.Sprintf("Upload to %s failed", platform),
				err,
			)
		}

		results = append(results, Result{Platform: platform, ExternalID: externalID, Exposed: exposed, VariationID: variationID})
		p.logger.Info("published",
			logging.String(logging.FieldEventType, "published"),
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("platform", platform),
			logging.String("external_id", externalID),
			logging.Bool("exposed", exposed),
			logging.String("variation", variationID))
	}
	return results, nil
}

// applyExperiment registers the item's variation set for one platform and
// flips each stored variation's exposure coin. The first variation whose coin
// lands has its treatment applied to a copy of the baseline metadata.
// Experiment failures never block publishing; the baseline goes out instead.
func (p *Publisher) applyExperiment(ctx context.Context, item *queue.Item, platform string, meta queue.PublishMetadata) (queue.PublishMetadata, string) {
	if p.engine == nil {
		return meta, ""
	}

	variations, err := p.engine.Generate(ctx, item.ID, item.Topic, platform, baselinePayload(meta))
	if err != nil {
		p.logger.Warn("experiment registration failed",
			logging.Int64(logging.FieldItemID, item.ID),
			logging.String("platform", platform),
			logging.Error(err))
		return meta, ""
	}

	for _, v := range variations {
		expose, err := p.engine.ShouldExpose(ctx, v.ID)
		if err != nil {
			p.logger.Warn("experiment exposure check failed",
				logging.String("variation", v.ID),
				logging.Error(err))
			return meta, ""
		}
		if expose {
			return applyVariation(meta, v), v.ID
		}
	}
	return meta, ""
}

// baselinePayload captures the control treatment the candidate competes
// against.
func baselinePayload(meta queue.PublishMetadata) experiment.Payload {
	payload := experiment.Payload{Title: meta.Title, Tags: meta.Tags}
	if meta.ScheduledAt != nil {
		payload.PostHour = meta.ScheduledAt.UTC().Hour()
	}
	return payload
}

// applyVariation overlays one variation's treatment on the baseline metadata.
// Only the field matching the variation's dimension changes.
func applyVariation(meta queue.PublishMetadata, v experiment.Variation) queue.PublishMetadata {
	switch v.Dimension {
	case experiment.DimensionTitle:
		meta.Title = v.Payload.Title
	case experiment.DimensionTags:
		meta.Tags = v.Payload.Tags
	case experiment.DimensionSchedule:
		at := nextHourUTC(time.Now().UTC(), v.Payload.PostHour)
		meta.ScheduledAt = &at
	}
	return meta
}

// nextHourUTC returns the next occurrence of hour:00 UTC strictly after now.
func nextHourUTC(now time.Time, hour int) time.Time {
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !at.After(now) {
		at = at.Add(24 * time.Hour)
	}
	return at
}

// RecordMetrics forwards observed platform metrics to the experiment engine.
// Deliveries are idempotent; the latest metrics for a variation win.
func (p *Publisher) RecordMetrics(ctx context.Context, variationID string, metrics map[string]float64) error {
	if p.engine == nil {
		return nil
	}
	return p.engine.RecordOutcome(ctx, variationID, metrics)
}
