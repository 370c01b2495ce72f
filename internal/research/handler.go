package research

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"log/slog"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
)

// Handler researches a queued topic and attaches the research payload to the
// item. When the research service is unreachable after every retry, the
// fallback produces a low-confidence offline payload and flags the item for
// manual review.
type Handler struct {
	cfg    config.Research
	client *Client
	logger *slog.Logger
}

// NewHandler builds the research stage handler from configuration.
func NewHandler(cfg config.Research, logger *slog.Logger) *Handler {
	client := NewClient(
		WithBaseURL(cfg.BaseURL),
		WithUserAgent(cfg.UserAgent),
	)
	return NewHandlerWithClient(cfg, client, logger)
}

// NewHandlerWithClient allows injecting the research client (used in tests).
func NewHandlerWithClient(cfg config.Research, client *Client, logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "research"))
	}
	return &Handler{cfg: cfg, client: client, logger: stageLogger}
}

// SetLogger replaces the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "research"))
	}
}

func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Topic) == "" {
		return services.Wrap(
			services.ErrValidation,
			"research",
			"validate inputs",
			"Request has no topic to research",
			nil,
		)
	}
	item.ProgressStage = "Researching"
	item.ProgressMessage = "Gathering facts for " + item.Topic
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	return nil
}

func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, h.logger)
	logger.Info("fetching research summary", logging.String("topic", item.Topic))

	summary, err := h.client.Summary(ctx, item.Topic)
	if err != nil {
		if errors.Is(err, ErrSubjectNotFound) {
			return services.Wrap(
				services.ErrValidation,
				"research",
				"fetch summary",
				fmt.Sprintf("No encyclopedia entry found for %q; check the topic spelling", item.Topic),
				err,
			)
		}
		return services.Wrap(
			services.ErrTransient,
			"research",
			"fetch summary",
			"Research service request failed",
			err,
		)
	}

	birth, death := lifeYears(summary.Extract)
	payload := queue.ResearchPayload{
		Title:             summary.Title,
		Summary:           summary.Extract,
		Facts:             splitFacts(summary.Extract, h.cfg.MaxFacts),
		ImageKeywords:     imageKeywords(item.Topic, birth),
		VerificationScore: 0.9,
		BirthYear:         birth,
		DeathYear:         death,
	}
	if len(payload.Facts) == 0 {
		return services.Wrap(
			services.ErrValidation,
			"research",
			"extract facts",
			fmt.Sprintf("Summary for %q yielded no usable facts", item.Topic),
			nil,
		)
	}
	if err := item.SetResearch(payload); err != nil {
		return services.Wrap(services.ErrValidation, "research", "store payload", "Failed to encode research payload", err)
	}

	item.ProgressPercent = 100
	item.ProgressMessage = fmt.Sprintf("Collected %d facts", len(payload.Facts))
	logger.Info("research complete",
		logging.String(logging.FieldEventType, "research_complete"),
		logging.Int("facts", len(payload.Facts)),
		logging.Int("birth_year", birth))
	return nil
}

// Fallback produces an offline payload from the topic alone. The verification
// score is deliberately low so the quality gate weighs the item accordingly,
// and the item is flagged for manual review.
func (h *Handler) Fallback(ctx context.Context, item *queue.Item) error {
	payload := queue.ResearchPayload{
		Title:             item.Topic,
		Summary:           "",
		Facts:             []string{item.Topic + " is remembered as a notable historical figure."},
		ImageKeywords:     imageKeywords(item.Topic, 0),
		VerificationScore: 0.2,
	}
	if err := item.SetResearch(payload); err != nil {
		return services.Wrap(services.ErrValidation, "research", "store fallback payload", "Failed to encode research payload", err)
	}
	item.NeedsReview = true
	item.ReviewReason = "Research service unavailable; offline fallback used"
	item.ProgressMessage = "Research fallback applied"

	logging.WithContext(ctx, h.logger).Warn("research fallback applied",
		logging.String(logging.FieldEventType, "research_fallback"),
		logging.String("topic", item.Topic))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if _, err := url.Parse(h.cfg.BaseURL); err != nil || strings.TrimSpace(h.cfg.BaseURL) == "" {
		return stage.Unhealthy("research", "research base URL is not configured")
	}
	return stage.Healthy("research")
}
