package quality

import (
	"context"
	"encoding/json"
	"strings"

	"log/slog"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
)

// Narration pacing used to estimate the rendered duration.
const narrationWordsPerSecond = 2.5

// Handler runs the gate against a narrated item. A rejection is terminal:
// the returned error carries the content-rejected marker, which the workflow
// treats as a permanent failure that is never retried.
type Handler struct {
	cfg    *config.Config
	gate   *Gate
	logger *slog.Logger
}

// NewHandler builds the review stage handler from configuration.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "quality"))
	}
	return &Handler{
		cfg:    cfg,
		gate:   New(cfg.Quality, cfg.Assembly, WithLogger(stageLogger)),
		logger: stageLogger,
	}
}

// SetLogger replaces the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "quality"))
	}
}

func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Script) == "" {
		return services.Wrap(
			services.ErrValidation,
			"reviewing",
			"validate inputs",
			"No script present to review",
			nil,
		)
	}
	item.ProgressStage = "Reviewing"
	item.ProgressMessage = "Scoring content quality"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	return nil
}

func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, h.logger)

	research, err := item.Research()
	if err != nil {
		return services.Wrap(services.ErrValidation, "reviewing", "decode research", "Research payload is unreadable", err)
	}
	assets, err := item.Assets()
	if err != nil {
		return services.Wrap(services.ErrValidation, "reviewing", "decode manifest", "Asset manifest is unreadable", err)
	}

	sourceIDs := make([]string, len(assets))
	for i, asset := range assets {
		sourceIDs[i] = asset.SourceID
	}
	artifact := ArtifactInfo{
		Width:           h.cfg.Assembly.Width,
		Height:          h.cfg.Assembly.Height,
		Codec:           h.cfg.Assembly.Codec,
		DurationSeconds: float64(len(strings.Fields(item.Script))) / narrationWordsPerSecond,
		AssetSourceIDs:  sourceIDs,
	}

	report := h.gate.Evaluate(research, item.Script, artifact)
	encoded, err := json.Marshal(report)
	if err != nil {
		return services.Wrap(services.ErrValidation, "reviewing", "encode report", "Failed to encode quality report", err)
	}
	item.QualityReportJSON = string(encoded)

	if !report.Approved {
		reason := "quality gate rejected the content"
		if len(report.Issues) > 0 {
			reason = report.Issues[0]
		}
		logger.Warn("content rejected",
			logging.String(logging.FieldEventType, "quality_rejected"),
			logging.Float64("overall", report.Overall),
			logging.Int("issues", len(report.Issues)))
		return services.Wrap(services.ErrContentRejected, "reviewing", "evaluate", reason, nil)
	}

	item.ProgressPercent = 100
	item.ProgressMessage = "Quality gate passed"
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if h.cfg.Quality.Weights.Sum() == 0 {
		return stage.Unhealthy("reviewing", "quality weights are not configured")
	}
	return stage.Healthy("reviewing")
}
