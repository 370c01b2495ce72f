package scriptgen

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
)

// Handler turns a researched item into a narration script and seeds the
// baseline publish metadata that experiments may later vary.
type Handler struct {
	logger *slog.Logger
}

// NewHandler builds the script generation stage handler.
func NewHandler(logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "scriptgen"))
	}
	return &Handler{logger: stageLogger}
}

// SetLogger replaces the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "scriptgen"))
	}
}

func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	research, err := item.Research()
	if err != nil {
		return services.Wrap(services.ErrValidation, "scripting", "decode research", "Research payload is unreadable", err)
	}
	if len(research.Facts) == 0 {
		return services.Wrap(
			services.ErrValidation,
			"scripting",
			"validate inputs",
			"No research facts available; run research before scripting",
			nil,
		)
	}
	item.ProgressStage = "Scripting"
	item.ProgressMessage = "Writing narration script"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	return nil
}

func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, h.logger)

	research, err := item.Research()
	if err != nil {
		return services.Wrap(services.ErrValidation, "scripting", "decode research", "Research payload is unreadable", err)
	}

	item.Script = Generate(research, item.TargetDurationSec)

	meta := queue.PublishMetadata{
		Title:       baselineTitle(research),
		Description: baselineDescription(research),
		Tags:        baselineTags(research),
	}
	if err := item.SetPublishMeta(meta); err != nil {
		return services.Wrap(services.ErrValidation, "scripting", "store publish metadata", "Failed to encode publish metadata", err)
	}

	item.ProgressPercent = 100
	item.ProgressMessage = "Script ready"
	logger.Info("script generated",
		logging.String(logging.FieldEventType, "script_generated"),
		logging.Int("words", len(strings.Fields(item.Script))))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("scripting")
}

func baselineTitle(research queue.ResearchPayload) string {
	return fmt.Sprintf("The story of %s", research.Title)
}

func baselineDescription(research queue.ResearchPayload) string {
	summary := research.Summary
	if idx := strings.IndexAny(summary, ".!?"); idx > 0 {
		summary = summary[:idx+1]
	}
	return strings.TrimSpace(summary)
}

func baselineTags(research queue.ResearchPayload) []string {
	tags := []string{"history", "education"}
	for _, kw := range research.ImageKeywords {
		kw = strings.TrimSpace(strings.ToLower(kw))
		if kw != "" && !strings.Contains(kw, " ") {
			tags = append(tags, kw)
		}
	}
	return tags
}
