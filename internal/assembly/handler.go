package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"shortform/internal/config"
	"shortform/internal/logging"
	"shortform/internal/queue"
	"shortform/internal/services"
	"shortform/internal/stage"
)

// CommandRunner executes the external render command.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Handler renders the approved item into the final video artifact.
type Handler struct {
	cfg    *config.Config
	run    CommandRunner
	logger *slog.Logger
}

// NewHandler builds the assembly stage handler from configuration.
func NewHandler(cfg *config.Config, logger *slog.Logger) *Handler {
	return NewHandlerWithRunner(cfg, defaultCommandRunner, logger)
}

// NewHandlerWithRunner allows injecting the command runner (used in tests).
func NewHandlerWithRunner(cfg *config.Config, run CommandRunner, logger *slog.Logger) *Handler {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "assembly"))
	}
	return &Handler{cfg: cfg, run: run, logger: stageLogger}
}

// SetLogger replaces the handler logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger.With(logging.String("component", "assembly"))
	}
}

func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	if strings.TrimSpace(item.NarrationPath) == "" {
		return services.Wrap(
			services.ErrValidation,
			"assembling",
			"validate inputs",
			"No narration audio present; run narration before assembly",
			nil,
		)
	}
	if _, err := os.Stat(item.NarrationPath); err != nil {
		return services.Wrap(services.ErrValidation, "assembling", "validate inputs", "Narration audio file is missing on disk", err)
	}
	item.ProgressStage = "Assembling"
	item.ProgressMessage = "Rendering video"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	return nil
}

func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, h.logger)

	assets, err := item.Assets()
	if err != nil {
		return services.Wrap(services.ErrValidation, "assembling", "decode manifest", "Asset manifest is unreadable", err)
	}

	if err := os.MkdirAll(h.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "assembling", "create output directory", "Cannot create output directory", err)
	}
	outputPath := filepath.Join(h.cfg.Paths.OutputDir, fmt.Sprintf("short-%d.mp4", item.ID))

	duration := float64(item.TargetDurationSec)
	if max := float64(h.cfg.Assembly.MaxDurationSeconds); max > 0 && (duration <= 0 || duration > max) {
		duration = max
	}

	args := buildRenderArgs(h.cfg.Assembly, assets, item.NarrationPath, outputPath, duration)

	runCtx := ctx
	if timeout := h.cfg.Assembly.TimeoutSeconds; timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}
	if err := h.run(runCtx, h.cfg.Assembly.Command, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "assembling", "run renderer", "Video render failed", err)
	}
	if info, err := os.Stat(outputPath); err != nil || info.Size() == 0 {
		return services.Wrap(
			services.ErrExternalTool,
			"assembling",
			"verify output",
			"Renderer reported success but produced no artifact",
			err,
		)
	}

	item.ArtifactPath = outputPath
	item.ProgressPercent = 100
	item.ProgressMessage = "Video rendered"
	logger.Info("assembly complete",
		logging.String(logging.FieldEventType, "assembly_complete"),
		logging.String("artifact_path", outputPath),
		logging.Int("assets", len(assets)))
	return nil
}

func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	command := strings.TrimSpace(h.cfg.Assembly.Command)
	if command == "" {
		return stage.Unhealthy("assembling", "render command is not configured")
	}
	if _, err := exec.LookPath(command); err != nil {
		return stage.Unhealthy("assembling", fmt.Sprintf("render command %q not found in PATH", command))
	}
	return stage.Healthy("assembling")
}
