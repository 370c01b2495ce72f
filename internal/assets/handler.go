package assets

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
)

// Handler gathers visual assets for a scripted item: it searches the image
// provider with the research keywords and downloads results into the
// request's working directory.
type Handler struct {
	cfg    *config.Config
	client *Client
	logger *slog.Logger
}

// NewHandler builds the asset gathering stage handler from configuration.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	client := NewClient(cfg.Assets.APIKey, WithBaseURL(cfg.Assets.BaseURL))
	return NewHandlerWithClient(cfg, client, logger)
}

// NewHandlerWithClient allows injecting the image client (used in tests).
func NewHandlerWithClient(cfg *config.Config, client *Client, logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "assets"))
	}
	return &Handler{cfg: cfg, client: client, logger: stageLogger}
}

// SetLogger replaces the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "assets"))
	}
}

func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.Script) == "" {
		return services.Wrap(
			services.ErrValidation,
			"gathering_assets",
			"validate inputs",
			"No script present; run scripting before gathering assets",
			nil,
		)
	}
	item.ProgressStage = "Gathering assets"
	item.ProgressMessage = "Searching for visuals"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	return nil
}

func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, h.logger)

	research, err := item.Research()
	if err != nil {
		return services.Wrap(services.ErrValidation, "gathering_assets", "decode research", "Research payload is unreadable", err)
	}
	keywords := research.ImageKeywords
	if len(keywords) == 0 {
		keywords = []string{item.Topic}
	}

	destDir := h.cfg.RequestWorkDir(item.ID)
	wanted := h.cfg.Assets.ImageCount
	var manifest []queue.Asset

	for _, keyword := range keywords {
		if len(manifest) >= wanted {
			break
		}
		photos, err := h.client.Search(ctx, keyword, wanted-len(manifest))
		if err != nil {
			return services.Wrap(services.ErrTransient, "gathering_assets", "search images", "Image search failed", err)
		}
		for _, photo := range photos {
			localPath, err := h.client.Download(ctx, photo, destDir)
			if err != nil {
				logger.Warn("asset download failed, skipping",
					logging.Int64("photo_id", photo.ID),
					logging.Error(err))
				continue
			}
			manifest = append(manifest, queue.Asset{
				URL:       photo.Src.Large,
				SourceID:  fmt.Sprintf("pexels:%d", photo.ID),
				LocalPath: localPath,
			})
			if len(manifest) >= wanted {
				break
			}
		}
	}

	if len(manifest) == 0 {
		return services.Wrap(
			services.ErrTransient,
			"gathering_assets",
			"collect images",
			"No downloadable images found for any keyword",
			nil,
		)
	}
	if err := item.SetAssets(manifest); err != nil {
		return services.Wrap(services.ErrValidation, "gathering_assets", "store manifest", "Failed to encode asset manifest", err)
	}

	item.ProgressPercent = 100
	item.ProgressMessage = fmt.Sprintf("Collected %d assets", len(manifest))
	logger.Info("assets gathered",
		logging.String(logging.FieldEventType, "assets_gathered"),
		logging.Int("count", len(manifest)))
	return nil
}

// Fallback records an empty manifest and flags the item for review. Assembly
// renders a plain background when no imagery is available.
func (h *Handler) Fallback(ctx context.Context, item *queue.Item) error {
	if err := item.SetAssets([]queue.Asset{}); err != nil {
		return services.Wrap(services.ErrValidation, "gathering_assets", "store manifest", "Failed to encode asset manifest", err)
	}
	item.NeedsReview = true
	item.ReviewReason = "Image provider unavailable; assembled without imagery"
	item.ProgressMessage = "Asset fallback applied"

	logging.WithContext(ctx, h.logger).Warn("asset fallback applied",
		logging.String(logging.FieldEventType, "assets_fallback"))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(h.cfg.Assets.APIKey) == "" {
		return stage.Unhealthy("gathering_assets", "image provider API key is not configured")
	}
	return stage.Healthy("gathering_assets")
}
